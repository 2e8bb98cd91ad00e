package factory

import (
	"fmt"
	"sync"

	"github.com/loykin/longrun/internal/store"
	"github.com/loykin/longrun/internal/store/postgres"
	"github.com/loykin/longrun/internal/store/sqlite"
)

// Builder creates a store from config.
type Builder func(cfg store.Config) (store.Store, error)

var (
	mu       sync.RWMutex
	builders = map[string]Builder{
		"memory": func(store.Config) (store.Store, error) {
			return store.NewMemory(), nil
		},
		"sqlite": func(cfg store.Config) (store.Store, error) {
			return sqlite.New(cfg.Path)
		},
		"postgres": func(cfg store.Config) (store.Store, error) {
			return postgres.FromConfig(cfg)
		},
		"postgresql": func(cfg store.Config) (store.Store, error) {
			return postgres.FromConfig(cfg)
		},
	}
)

// Register adds a store type. Existing names are overwritten.
func Register(name string, b Builder) {
	mu.Lock()
	builders[name] = b
	mu.Unlock()
}

// Open builds a store for cfg.Type.
func Open(cfg store.Config) (store.Store, error) {
	mu.RLock()
	b, ok := builders[cfg.Type]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported store type: %s (supported: %v)", cfg.Type, SupportedTypes())
	}
	return b(cfg)
}

// SupportedTypes lists the registered store types.
func SupportedTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(builders))
	for name := range builders {
		types = append(types, name)
	}
	return types
}
