package factory

import (
	"fmt"
	"sync"

	"github.com/indieinfra/tgfile/config"
	"github.com/indieinfra/tgfile/storage/backend"
	"github.com/indieinfra/tgfile/storage/backend/s3"
	"github.com/indieinfra/tgfile/storage/backend/telegram"
)

// Factory builds a file body store for the provided backend config.
type Factory func(*config.Backend) (backend.Store, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces a backend factory for the given strategy name.
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

// Create builds a backend store using the registered factory for the
// configured strategy.
func Create(cfg *config.Backend) (backend.Store, error) {
	f, ok := Get(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown backend strategy %q", cfg.Strategy)
	}
	return f(cfg)
}

func init() {
	Register("telegram", func(cfg *config.Backend) (backend.Store, error) {
		return telegram.New(cfg.Telegram)
	})

	Register("s3", func(cfg *config.Backend) (backend.Store, error) {
		return s3.New(cfg.S3)
	})
}
