// FILE: logpulse/src/internal/store/bolt.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"logpulse/src/internal/core"

	bolt "go.etcd.io/bbolt"
)

var bucketLogs = []byte("logs")

// BoltStore persists entries in a local BoltDB file, keyed by UUIDv7
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketLogs); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketLogs, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Save(_ context.Context, entry core.LogEntry) error {
	rec, err := NewRecord(entry)
	if err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLogs).Put([]byte(rec.ID), data)
	})
}

// Recent returns up to limit records, newest first
func (s *BoltStore) Recent(limit int) ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLogs).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record %s: %w", k, err)
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Name() string {
	return "bolt"
}
