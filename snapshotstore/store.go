// Package snapshotstore persists document snapshots in a bbolt database.
package snapshotstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	ErrNotFound        = errors.New("snapshot not found")
	ErrInvalidSnapshot = errors.New("snapshot is not a JSON array")
)

var snapshotsBucket = []byte("snapshots")

// Store keeps the latest snapshot of every document.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open snapshot store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Save replaces the snapshot of docID.
func (s *Store) Save(docID string, snapshot []byte) error {
	if !json.Valid(snapshot) || len(snapshot) == 0 || snapshot[0] != '[' {
		return ErrInvalidSnapshot
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotsBucket).Put([]byte(docID), snapshot)
	})
}

// Load returns the snapshot of docID, or ErrNotFound.
func (s *Store) Load(docID string) ([]byte, error) {
	var snapshot []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(snapshotsBucket).Get([]byte(docID))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction.
		snapshot = append([]byte(nil), v...)
		return nil
	})
	return snapshot, err
}

// Delete removes the snapshot of docID.
func (s *Store) Delete(docID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotsBucket).Delete([]byte(docID))
	})
}

// Documents returns the ids of every stored document, in key order.
func (s *Store) Documents() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotsBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
