package factory

import (
	"fmt"
	"sync"

	"github.com/indieinfra/tgfile/config"
	"github.com/indieinfra/tgfile/storage/catalog"
)

// Factory builds a catalog store for the provided catalog config.
type Factory func(*config.Catalog) (catalog.Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces a catalog factory for the given strategy name.
func Register(strategy string, factory Factory) {
	mu.Lock()
	registry[strategy] = factory
	mu.Unlock()
}

// Get retrieves a factory for the given strategy.
func Get(strategy string) (Factory, bool) {
	mu.RLock()
	f, ok := registry[strategy]
	mu.RUnlock()
	return f, ok
}

// Create builds a catalog store using the registered factory for the
// configured strategy.
func Create(cfg *config.Catalog) (catalog.Store, error) {
	f, ok := Get(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown catalog strategy %q", cfg.Strategy)
	}
	return f(cfg)
}

func init() {
	Register("sql", func(cfg *config.Catalog) (catalog.Store, error) {
		return catalog.NewSQLStore(cfg.SQL)
	})

	Register("d1", func(cfg *config.Catalog) (catalog.Store, error) {
		return catalog.NewD1Store(cfg.D1)
	})

	Register("memory", func(cfg *config.Catalog) (catalog.Store, error) {
		return catalog.NewMemoryStore(), nil
	})
}
