package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"series-tracker/logging"
	"series-tracker/metrics"
	"series-tracker/models"
	"series-tracker/store"
)

// AuthConfig tunes the AuthService
type AuthConfig struct {
	TokenTTL                time.Duration
	SignInAttemptsPerMinute int
	HashCost                int // bcrypt cost; 0 means bcrypt.DefaultCost
}

// maxPasswordBytes is the longest input bcrypt will hash
const maxPasswordBytes = 72

// AuthService handles email/password accounts and bearer tokens
type AuthService struct {
	users  store.UserStore
	tokens TokenStore
	cfg    AuthConfig
	logger zerolog.Logger

	// dummyHash is checked for unknown emails so every sign-in costs one bcrypt run
	dummyHash []byte

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users store.UserStore, tokens TokenStore, cfg AuthConfig) *AuthService {
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.SignInAttemptsPerMinute <= 0 {
		cfg.SignInAttemptsPerMinute = 5
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 720 * time.Hour
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-password"), cfg.HashCost)
	return &AuthService{
		users:     users,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logging.WithComponent("auth"),
		dummyHash: dummy,
		limiters:  make(map[string]*rate.Limiter),
		now:       time.Now,
	}
}

// SignUp creates an account and signs it in
func (s *AuthService) SignUp(ctx context.Context, email, password string) (models.Identity, error) {
	identity, err := s.signUp(ctx, email, password)
	metrics.RecordAuthAttempt("signup", err)
	return identity, err
}

func (s *AuthService) signUp(ctx context.Context, email, password string) (models.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Identity{}, err
	}
	if utf8.RuneCountInString(password) < models.MinPasswordLength {
		return models.Identity{}, models.InvalidInput(fmt.Sprintf("password must be at least %d characters", models.MinPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return models.Identity{}, models.InvalidInput(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.HashCost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           store.NewID(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		s.logger.Info().Str("email", email).Err(err).Msg("SignUp: could not create user")
		return models.Identity{}, err
	}

	s.logger.Info().Str("email", email).Str("user_id", user.ID).Msg("SignUp: user registered")
	return s.issue(ctx, user)
}

// SignIn checks the password and issues a new token.
// Attempts are throttled per email address.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	identity, err := s.signIn(ctx, email, password)
	metrics.RecordAuthAttempt("signin", err)
	return identity, err
}

func (s *AuthService) signIn(ctx context.Context, email, password string) (models.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Identity{}, err
	}
	if password == "" {
		return models.Identity{}, models.InvalidInput("password is required")
	}
	if !s.allowSignIn(email) {
		s.logger.Warn().Str("email", email).Msg("SignIn: too many attempts")
		return models.Identity{}, models.ErrRateLimited
	}

	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return models.Identity{}, fmt.Errorf("sign in %s: %w", email, models.ErrUnauthorized)
	}
	if err != nil {
		return models.Identity{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info().Str("email", email).Msg("SignIn: wrong password")
		return models.Identity{}, fmt.Errorf("sign in %s: %w", email, models.ErrUnauthorized)
	}

	s.forgetLimiter(email)
	return s.issue(ctx, user)
}

// SignOut revokes the token
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	err := s.tokens.Revoke(ctx, token)
	metrics.RecordAuthAttempt("signout", err)
	return err
}

// Authenticate resolves a bearer token to its principal
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, models.ErrUnauthorized
	}
	return s.tokens.Lookup(ctx, token)
}

func (s *AuthService) issue(ctx context.Context, user store.User) (models.Identity, error) {
	token, err := NewToken()
	if err != nil {
		return models.Identity{}, fmt.Errorf("generate token: %w", err)
	}
	p := Principal{UserID: user.ID, Email: user.Email}
	if err := s.tokens.Save(ctx, token, p, s.cfg.TokenTTL); err != nil {
		return models.Identity{}, err
	}
	return models.Identity{UserID: user.ID, Email: user.Email, Token: token}, nil
}

// allowSignIn takes one attempt from the email's limiter. Limiters that have
// refilled completely carry no state and are dropped on the way.
func (s *AuthService) allowSignIn(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	burst := float64(s.cfg.SignInAttemptsPerMinute)
	for key, l := range s.limiters {
		if key != email && l.TokensAt(now) >= burst {
			delete(s.limiters, key)
		}
	}

	l, ok := s.limiters[email]
	if !ok {
		n := s.cfg.SignInAttemptsPerMinute
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		s.limiters[email] = l
	}
	return l.AllowN(now, 1)
}

func (s *AuthService) forgetLimiter(email string) {
	s.mu.Lock()
	delete(s.limiters, email)
	s.mu.Unlock()
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", models.InvalidInput("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", models.InvalidInput("email is not valid")
	}
	return email, nil
}
