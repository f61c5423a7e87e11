package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/flowstack/pkg/domain"
	bbolt "go.etcd.io/bbolt"
)

// DefaultBucket holds one key per execution.
const DefaultBucket = "executions"

// Store implements ports.ExecutionStore on an embedded bbolt database.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

type Option func(*Store)

// WithBucket overrides the bucket name.
func WithBucket(name string) Option {
	return func(s *Store) {
		s.bucket = []byte(name)
	}
}

// Open opens (or creates) the database file and ensures the bucket exists.
func Open(filename string, opts ...Option) (*Store, error) {
	db, err := bbolt.Open(filename, 0o644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	s, err := NewFromDB(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB wraps an open database.
func NewFromDB(db *bbolt.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, bucket: []byte(DefaultBucket)}
	for _, opt := range opts {
		opt(s)
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return s, nil
}

// Save persists the snapshot.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("execution id cannot be empty")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(snap.ID), data)
	})
}

// Load retrieves the snapshot.
func (s *Store) Load(ctx context.Context, executionID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		bs := tx.Bucket(s.bucket).Get([]byte(executionID))
		if bs == nil {
			return domain.ErrExecutionNotFound
		}
		// bs is only valid inside the transaction; Unmarshal copies it.
		snap = &domain.Snapshot{}
		if err := json.Unmarshal(bs, snap); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Delete removes the execution. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, executionID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(executionID))
	})
}

// List returns the execution ids in key order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			ids = append(ids, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
