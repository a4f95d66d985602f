// Package storage provides durable key/value persistence for interaction history.
//
// Each history store owns exactly one key; adapters never interpret the stored
// bytes. An absent key and an empty history are the same thing.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Adapter is the persistence boundary used by history stores.
type Adapter interface {
	// Load returns the stored value for key. ok is false when nothing is stored.
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Save replaces the value stored under key.
	Save(ctx context.Context, key string, data []byte) error
	// Clear removes key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
	// Keys lists the keys currently stored.
	Keys(ctx context.Context) ([]string, error)
	// Close releases underlying resources.
	Close() error
}

// ErrInvalidKey is returned for empty or path-like keys.
var ErrInvalidKey = errors.New("invalid storage key")

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// Config selects and configures an adapter.
type Config struct {
	Driver string
	Path   string
}

// Open builds the adapter named by cfg.Driver.
func Open(cfg Config) (Adapter, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", DriverMemory:
		return NewMemoryAdapter(), nil
	case DriverFile:
		return NewFileAdapter(cfg.Path)
	case DriverBolt:
		return OpenBolt(cfg.Path)
	case DriverSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
