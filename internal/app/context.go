package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"stakeboard/internal/config"
	"stakeboard/internal/db"
	"stakeboard/internal/domain"
	"stakeboard/internal/engine"
	"stakeboard/internal/migrate"
	"stakeboard/internal/persist"
	"stakeboard/internal/repo"
)

type Options struct {
	Workspace string
	Config    *config.Config
	Logger    *slog.Logger
	// Engine overrides the clock and id source; zero value means engine.New().
	Engine *engine.Engine
	// KV overrides the configured backend.
	KV repo.KV
}

// Session is an open workspace: the hydrated store plus the debounced writer
// mirroring every change to the backend.
type Session struct {
	Config    *config.Config
	Store     *engine.Store
	Adapter   persist.Adapter
	Debouncer *persist.Debouncer
	Logger    *slog.Logger
	// Restored is false when the state came from the sample dataset.
	Restored bool

	kv          repo.KV
	unsubscribe func()
}

// Open builds the backend, hydrates the store and subscribes the debounced
// writer.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadOptional(opts.Workspace); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	kv := opts.KV
	if kv == nil {
		var err error
		if kv, err = OpenBackend(ctx, opts.Workspace, cfg.Storage); err != nil {
			return nil, err
		}
	}
	e := engine.New()
	if opts.Engine != nil {
		e = *opts.Engine
	}
	adapter := persist.Adapter{
		KV:       kv,
		Key:      cfg.Storage.Key,
		Version:  cfg.Storage.Version,
		Fallback: e.Seed,
		Logger:   logger.With("component", "persist"),
	}
	initial, restored := adapter.Load(ctx)
	store := engine.NewStore(e, initial)
	deb := persist.NewDebouncer(cfg.Storage.Debounce, adapter.Save)
	s := &Session{
		Config:    cfg,
		Store:     store,
		Adapter:   adapter,
		Debouncer: deb,
		Logger:    logger,
		Restored:  restored,
		kv:        kv,
	}
	s.unsubscribe = store.Subscribe(deb.Schedule)
	logger.Debug("workspace opened", "backend", cfg.Storage.Backend, "restored", restored)
	return s, nil
}

// Dispatch forwards to the store.
func (s *Session) Dispatch(a engine.Action) (domain.State, bool) {
	return s.Store.Dispatch(a)
}

// Flush writes any pending state now.
func (s *Session) Flush() {
	s.Debouncer.Flush()
}

// Close flushes the pending write, detaches the writer and closes the backend.
func (s *Session) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.Debouncer.Flush()
	if err := s.kv.Close(); err != nil {
		return fmt.Errorf("close %s backend: %w", s.Config.Storage.Backend, err)
	}
	return nil
}

// OpenBackend returns the key-value backend named by cfg.Backend.
func OpenBackend(ctx context.Context, workspace string, cfg config.Storage) (repo.KV, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return repo.NewMemory(), nil
	case config.BackendFile:
		dir, err := db.EnsureWorkspace(workspace)
		if err != nil {
			return nil, err
		}
		return repo.NewFile(filepath.Join(dir, "kv"))
	case config.BackendSQLite:
		conn, err := db.Open(db.Config{Workspace: workspace})
		if err != nil {
			return nil, err
		}
		if _, err := migrate.Migrate(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate %s: %w", db.Path(workspace), err)
		}
		return repo.SQLite{DB: conn}, nil
	case config.BackendRedis:
		return repo.NewRedis(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
