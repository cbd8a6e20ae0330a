package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"series-tracker/metrics"
	"series-tracker/models"
)

// Principal is the user a bearer token belongs to
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// TokenStore keeps issued bearer tokens. Lookup returns
// models.ErrUnauthorized for unknown, revoked or expired tokens.
type TokenStore interface {
	Save(ctx context.Context, token string, p Principal, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (Principal, error)
	Revoke(ctx context.Context, token string) error
}

// NewToken returns a random URL-safe bearer token
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type tokenEntry struct {
	principal Principal
	expires   time.Time
}

// MemoryTokenStore is a TokenStore for single-process deployments
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]tokenEntry
	now     func() time.Time
}

// NewMemoryTokenStore creates an empty MemoryTokenStore
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		entries: make(map[string]tokenEntry),
		now:     time.Now,
	}
}

func (m *MemoryTokenStore) Save(ctx context.Context, token string, p Principal, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[token] = tokenEntry{principal: p, expires: m.now().Add(ttl)}
	m.evictExpiredLocked()
	metrics.SetActiveTokens(len(m.entries))
	return nil
}

func (m *MemoryTokenStore) Lookup(ctx context.Context, token string) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[token]
	if !ok {
		return Principal{}, models.ErrUnauthorized
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, token)
		metrics.SetActiveTokens(len(m.entries))
		return Principal{}, models.ErrUnauthorized
	}
	return e.principal, nil
}

func (m *MemoryTokenStore) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, token)
	metrics.SetActiveTokens(len(m.entries))
	return nil
}

func (m *MemoryTokenStore) evictExpiredLocked() {
	now := m.now()
	for token, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, token)
		}
	}
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // host:port
	Password string // optional
	DB       int
}

// RedisTokenStore keeps tokens in Redis so several API instances can share them
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore connects to Redis and verifies the connection.
func NewRedisTokenStore(ctx context.Context, cfg RedisConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisTokenStore{client: client, prefix: "series:token:"}, nil
}

func (r *RedisTokenStore) Save(ctx context.Context, token string, p Principal, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *RedisTokenStore) Lookup(ctx context.Context, token string) (Principal, error) {
	data, err := r.client.Get(ctx, r.prefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Principal{}, models.ErrUnauthorized
	}
	if err != nil {
		return Principal{}, fmt.Errorf("lookup token: %w", err)
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return Principal{}, fmt.Errorf("decode token: %w", err)
	}
	return p, nil
}

func (r *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, r.prefix+token).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool
func (r *RedisTokenStore) Close() error {
	return r.client.Close()
}
