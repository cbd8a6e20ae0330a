package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"series-tracker/models"
)

// BadgerStore implements Store on an embedded Badger directory.
//   - documents: key = "doc/<collection>/<id>" (JSON)
//   - users:     key = "user/<email>" (JSON)
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger database in dir
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// OpenBadgerInMemory opens a Badger instance that never touches disk
func OpenBadgerInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open in-memory: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the database
func (s *BadgerStore) Close() error { return s.db.Close() }

func docPrefix(collection string) []byte {
	return []byte("doc/" + collection + "/")
}

func docKey(collection, id string) []byte {
	return []byte("doc/" + collection + "/" + id)
}

func userKey(email string) []byte {
	return []byte("user/" + email)
}

func (s *BadgerStore) FetchAll(ctx context.Context, collection string) ([]models.Series, error) {
	list := []models.Series{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := docPrefix(collection)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var item models.Series
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			}); err != nil {
				return err
			}
			list = append(list, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	return list, nil
}

func (s *BadgerStore) Get(ctx context.Context, collection, id string) (models.Series, error) {
	var item models.Series
	err := s.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(docKey(collection, id))
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			return json.Unmarshal(val, &item)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Series{}, fmt.Errorf("get %s/%s: %w", collection, id, models.ErrNotFound)
	}
	if err != nil {
		return models.Series{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return item, nil
}

func (s *BadgerStore) Insert(ctx context.Context, collection string, in models.SeriesInput) (models.Series, error) {
	item := in.WithID(NewID())
	buf, err := json.Marshal(item)
	if err != nil {
		return models.Series{}, fmt.Errorf("insert into %s: %w", collection, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(docKey(collection, item.ID), buf)
	}); err != nil {
		return models.Series{}, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return item, nil
}

func (s *BadgerStore) Update(ctx context.Context, collection, id string, item models.Series) error {
	item.ID = id
	buf, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		key := docKey(collection, id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("update %s/%s: %w", collection, id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, collection, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := docKey(collection, id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s/%s: %w", collection, id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *BadgerStore) CreateUser(ctx context.Context, u User) error {
	buf, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		key := userKey(u.Email)
		if _, err := txn.Get(key); err == nil {
			return models.ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, buf)
	})
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return nil
}

func (s *BadgerStore) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(userKey(email))
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			return json.Unmarshal(val, &u)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return User{}, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("user %s: %w", email, err)
	}
	return u, nil
}
