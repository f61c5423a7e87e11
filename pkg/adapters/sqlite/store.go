package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/flowstack/pkg/domain"

	_ "modernc.org/sqlite"
)

// Store implements ports.ExecutionStore on SQLite. Besides the JSON snapshot
// it keeps the active flow and state ids in their own columns so executions
// can be queried with plain SQL.
type Store struct {
	db *sql.DB
}

// Open opens dsn with the pure-Go "sqlite" driver and initializes the schema.
//
//	store, _ := sqlite.Open("file:flowstack.db?_pragma=journal_mode(WAL)")
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New initializes the schema in db and returns a Store.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			flow_id TEXT NOT NULL,
			state_id TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			snapshot BLOB NOT NULL
		);`,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Save upserts the snapshot.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap.ID == "" {
		return errors.New("execution id cannot be empty")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions (id, flow_id, state_id, updated_at, snapshot)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			flow_id = excluded.flow_id,
			state_id = excluded.state_id,
			updated_at = excluded.updated_at,
			snapshot = excluded.snapshot`,
		snap.ID,
		snap.ActiveFlowID(),
		snap.CurrentStateID(),
		updated.UnixNano(),
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	return nil
}

// Load retrieves the snapshot.
func (s *Store) Load(ctx context.Context, executionID string) (*domain.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM executions WHERE id = ?`, executionID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the execution. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, executionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM executions WHERE id = ?`, executionID); err != nil {
		return fmt.Errorf("failed to delete execution: %w", err)
	}
	return nil
}

// List returns the execution ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.query(ctx, `SELECT id FROM executions ORDER BY id`)
}

// ListByFlow returns the executions whose active session runs flowID.
func (s *Store) ListByFlow(ctx context.Context, flowID string) ([]string, error) {
	return s.query(ctx, `SELECT id FROM executions WHERE flow_id = ? ORDER BY id`, flowID)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
