package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/flowstack/internal/logging"
	"github.com/aretw0/flowstack/pkg/adapters/bolt"
	"github.com/aretw0/flowstack/pkg/adapters/file"
	"github.com/aretw0/flowstack/pkg/adapters/memory"
	"github.com/aretw0/flowstack/pkg/adapters/redis"
	"github.com/aretw0/flowstack/pkg/adapters/sqlite"
	"github.com/aretw0/flowstack/pkg/persistence/middleware"
	"github.com/aretw0/flowstack/pkg/ports"
)

// Store kinds accepted by --store.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
)

// EncryptionKeyEnv holds a 32-byte key that enables snapshot encryption.
const EncryptionKeyEnv = "FLOWSTACK_ENCRYPTION_KEY"

// Config contains the settings shared by every command.
type Config struct {
	Dir       string
	Store     string
	StorePath string
	RedisAddr string
	RedisTTL  time.Duration
	LogLevel  string
	LogJSON   bool
	MaxDepth  int
	// Redact lists attribute name patterns masked before snapshots are stored.
	// The original values are not recoverable by later events.
	Redact []string
}

// DefaultConfig returns the flag defaults.
func DefaultConfig() Config {
	return Config{
		Dir:       ".",
		Store:     StoreFile,
		RedisAddr: "localhost:6379",
		LogLevel:  "warn",
	}
}

// Logger builds the logger for cfg, writing to w.
func (cfg Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(w, level, cfg.LogJSON), nil
}

// storePath resolves the location of file based stores relative to Dir.
func (cfg Config) storePath(defaultName string) string {
	if cfg.StorePath != "" {
		return cfg.StorePath
	}
	return filepath.Join(cfg.Dir, ".flowstack", defaultName)
}

// Persistence is an opened store plus the optional locker that goes with it.
type Persistence struct {
	Store  ports.ExecutionStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the store's resources.
func (p *Persistence) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// OpenStore opens the store selected by cfg.Store and wraps it with the
// configured middleware.
func OpenStore(ctx context.Context, cfg Config) (*Persistence, error) {
	p := &Persistence{}
	switch cfg.Store {
	case StoreMemory:
		p.Store = memory.NewStore()
	case StoreFile, "":
		p.Store = file.New(cfg.storePath("executions"))
	case StoreBolt:
		path, err := ensureDir(cfg.storePath("executions.db"))
		if err != nil {
			return nil, err
		}
		s, err := bolt.Open(path)
		if err != nil {
			return nil, err
		}
		p.Store, p.close = s, s.Close
	case StoreSQLite:
		path, err := ensureDir(cfg.storePath("executions.sqlite"))
		if err != nil {
			return nil, err
		}
		s, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		p.Store, p.close = s, s.Close
	case StoreRedis:
		var opts []redis.Option
		if cfg.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.RedisTTL))
		}
		s := redis.New(cfg.RedisAddr, "", 0, opts...)
		if err := s.Client().Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		p.Store, p.close = s, s.Close
		p.Locker = redis.NewLocker(s.Client(), redis.DefaultPrefix)
	default:
		return nil, fmt.Errorf("unknown store '%s' (want memory, file, redis, bolt or sqlite)", cfg.Store)
	}

	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Redact))
	}
	if key := os.Getenv(EncryptionKeyEnv); key != "" {
		if len(key) != 32 {
			_ = p.Close()
			return nil, fmt.Errorf("%s must be 32 bytes, got %d", EncryptionKeyEnv, len(key))
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte(key)}))
	}
	p.Store = middleware.Chain(p.Store, mws...)
	return p, nil
}

func ensureDir(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create store directory: %w", err)
	}
	return path, nil
}
