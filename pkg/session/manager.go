package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/flowstack/internal/logging"
	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/ports"
)

// DefaultLockTTL is how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates execution access, ensuring a stored execution is
// never loaded, dispatched and saved by two callers at once.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.ExecutionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager with the given persistence store.
func NewManager(store ports.ExecutionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(executionID) after unlocking.
func (m *Manager) acquire(executionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[executionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[executionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(executionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[executionID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, executionID)
	}
}

// Load retrieves a stored execution.
func (m *Manager) Load(ctx context.Context, executionID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, executionID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, executionID)
		return err
	})
	return snap, err
}

// Create persists snap only if no execution with the same id exists.
func (m *Manager) Create(ctx context.Context, snap *domain.Snapshot) error {
	return m.WithLock(ctx, snap.ID, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, snap.ID)
		if err == nil {
			return fmt.Errorf("%w: execution '%s' already exists", domain.ErrIllegalState, snap.ID)
		}
		if !errors.Is(err, domain.ErrExecutionNotFound) {
			return fmt.Errorf("failed to check execution existence: %w", err)
		}
		if err := m.store.Save(ctx, snap); err != nil {
			return fmt.Errorf("failed to create execution: %w", err)
		}
		return nil
	})
}

// Save persists the execution snapshot.
func (m *Manager) Save(ctx context.Context, snap *domain.Snapshot) error {
	return m.WithLock(ctx, snap.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, snap)
	})
}

// Delete removes the execution from the store.
func (m *Manager) Delete(ctx context.Context, executionID string) error {
	return m.WithLock(ctx, executionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, executionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying execution store. Use it inside WithLock,
// where the Manager's own methods would deadlock.
func (m *Manager) Store() ports.ExecutionStore {
	return m.store
}

// WithLock executes a function while holding the lock for the execution.
func (m *Manager) WithLock(ctx context.Context, executionID string, fn func(context.Context) error) error {
	entry := m.acquire(executionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(executionID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, executionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"execution_id", executionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
