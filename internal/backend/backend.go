// Package backend builds the configured repository implementation.
package backend

import (
	"context"
	"fmt"

	"loantracker/internal/config"
	"loantracker/internal/store"
)

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result is a ready repository plus its lifecycle hooks.
type Result struct {
	Repository store.Repository
	// Ping is used by the readiness probe.
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

type Config struct {
	Type BackendType

	// Memory
	SeedSampleData bool
	SeedFile       string

	// SQLite
	SQLiteDBPath string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	bt := BackendType(c.DataBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", c.DataBackend)
	}
	return Config{
		Type:           bt,
		SeedSampleData: c.SeedSampleData,
		SeedFile:       c.MemorySeedFile,
		SQLiteDBPath:   c.SQLiteDBPath,
		RedisAddr:      c.RedisAddr,
		RedisPassword:  c.RedisPassword,
		RedisDB:        c.RedisDB,
	}, nil
}
