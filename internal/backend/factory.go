package backend

import (
	"context"
	"fmt"
	"log/slog"

	"loantracker/internal/storage"
	"loantracker/internal/store/memory"
	"loantracker/internal/store/redis"
)

type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create opens the backend selected by cfg.Type.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	switch cfg.Type {
	case MemoryBackend:
		return f.createMemory(cfg)
	case SQLiteBackend:
		return f.createSQLite(cfg)
	case RedisBackend:
		return f.createRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *Factory) createMemory(cfg Config) (*Result, error) {
	var (
		st  *memory.Store
		err error
	)
	switch {
	case cfg.SeedFile != "":
		st, err = memory.NewFromFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("load memory seed %s: %w", cfg.SeedFile, err)
		}
	case cfg.SeedSampleData:
		st = memory.NewSeeded()
	default:
		st = memory.New()
	}

	f.logger.Info("Initialized memory backend",
		"seed_file", cfg.SeedFile,
		"sample_data", cfg.SeedSampleData && cfg.SeedFile == "")

	return &Result{
		Repository: st,
		Ping:       func(context.Context) error { return nil },
		Cleanup:    func() error { return nil },
	}, nil
}

func (f *Factory) createSQLite(cfg Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return &Result{
		Repository: repo,
		Ping:       repo.Ping,
		Cleanup:    repo.Close,
	}, nil
}

func (f *Factory) createRedis(ctx context.Context, cfg Config) (*Result, error) {
	st, err := redis.New(ctx, redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis store: %w", err)
	}
	f.logger.Info("Initialized redis backend", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return &Result{
		Repository: st,
		Ping:       st.Ping,
		Cleanup:    st.Close,
	}, nil
}
