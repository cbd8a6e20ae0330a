package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver

	"series-tracker/models"
	"series-tracker/utils"
)

const sqliteSchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection    TEXT NOT NULL,
	id            TEXT NOT NULL,
	name          TEXT NOT NULL,
	episode_count INTEGER NOT NULL DEFAULT 0,
	image_url     TEXT NOT NULL DEFAULT '',
	created_at_ms INTEGER NOT NULL,
	updated_at_ms INTEGER NOT NULL,
	PRIMARY KEY (collection, id)
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL
);
`

// SQLiteStore implements Store on a SQLite database file
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Pragmas are passed in the DSN so they apply to every pooled connection.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := utils.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("sqlite: create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version >= sqliteSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(sqliteSchema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) FetchAll(ctx context.Context, collection string) ([]models.Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, episode_count, image_url
		FROM documents
		WHERE collection = ?
		ORDER BY id ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	defer rows.Close()

	list := []models.Series{}
	for rows.Next() {
		var item models.Series
		if err := rows.Scan(&item.ID, &item.Name, &item.EpisodeCount, &item.ImageURL); err != nil {
			return nil, fmt.Errorf("fetch %s: scan: %w", collection, err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	return list, nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (models.Series, error) {
	var item models.Series
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, episode_count, image_url
		FROM documents
		WHERE collection = ? AND id = ?
	`, collection, id).Scan(&item.ID, &item.Name, &item.EpisodeCount, &item.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Series{}, fmt.Errorf("get %s/%s: %w", collection, id, models.ErrNotFound)
	}
	if err != nil {
		return models.Series{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return item, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, collection string, in models.SeriesInput) (models.Series, error) {
	item := in.WithID(NewID())
	now := time.Now().UnixMilli()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, name, episode_count, image_url, created_at_ms, updated_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, collection, item.ID, item.Name, item.EpisodeCount, item.ImageURL, now, now)
	if err != nil {
		return models.Series{}, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return item, nil
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, item models.Series) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET name = ?, episode_count = ?, image_url = ?, updated_at_ms = ?
		WHERE collection = ? AND id = ?
	`, item.Name, item.EpisodeCount, item.ImageURL, time.Now().UnixMilli(), collection, id)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return requireAffected(res, "update", collection, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return requireAffected(res, "delete", collection, id)
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u User) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`, u.ID, u.Email, u.PasswordHash, u.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	if n == 0 {
		return fmt.Errorf("create user %s: %w", u.Email, models.ErrConflict)
	}
	return nil
}

func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (User, error) {
	var (
		u         User
		createdMs int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at_ms FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("user %s: %w", email, err)
	}
	u.CreatedAt = time.UnixMilli(createdMs).UTC()
	return u, nil
}

func requireAffected(res sql.Result, op, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s/%s: %w", op, collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s/%s: %w", op, collection, id, models.ErrNotFound)
	}
	return nil
}
