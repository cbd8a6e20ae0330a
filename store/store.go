// Package store provides the document storage behind the series API.
//
// Documents are grouped into named collections and keyed by a
// store-assigned id. Ids are UUIDv7 strings, so sorting by id follows
// insertion order; every backend returns FetchAll results in that order.
//
// Three backends share the same contract:
//   - SQLite (default): single file, WAL mode
//   - Badger: embedded key-value directory
//   - Memory: process lifetime only, used in tests and for demos
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"series-tracker/config"
	"series-tracker/models"
)

// DocumentStore is the CRUD surface over series documents.
// Update and Delete return models.ErrNotFound for unknown ids.
type DocumentStore interface {
	FetchAll(ctx context.Context, collection string) ([]models.Series, error)
	Get(ctx context.Context, collection, id string) (models.Series, error)
	Insert(ctx context.Context, collection string, in models.SeriesInput) (models.Series, error)
	Update(ctx context.Context, collection, id string, s models.Series) error
	Delete(ctx context.Context, collection, id string) error
}

// User is an account as persisted by a UserStore
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserStore persists accounts. CreateUser returns models.ErrConflict when
// the email is taken; UserByEmail returns models.ErrNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
}

// Store is implemented by every backend
type Store interface {
	DocumentStore
	UserStore
	Close() error
}

// Open returns the backend selected in cfg
func Open(cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return OpenSQLite(cfg.DBPath)
	case config.BackendBadger:
		return OpenBadger(cfg.BadgerDir)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewID returns a new time-ordered document id
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
