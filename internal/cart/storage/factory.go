package storage

import (
	"fmt"

	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/pkg/config"
	"gorm.io/gorm"
)

const (
	BackendMemory = config.CartBackendMemory
	BackendFile   = config.CartBackendFile
	BackendRedis  = config.CartBackendRedis
	BackendSQL    = config.CartBackendSQL
)

// Deps carries the connections a backend may need. Unused ones may be nil.
type Deps struct {
	Redis KV
	DB    *gorm.DB
}

// NewFactory builds the persister factory selected by cfg.Backend.
func NewFactory(cfg config.CartConfig, deps Deps) (cart.PersisterFactory, error) {
	switch cfg.NormalizedBackend() {
	case BackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("cart backend %q requires a redis client", BackendRedis)
		}
		return RedisFactory(deps.Redis, cfg.TTL), nil
	case BackendSQL:
		if deps.DB == nil {
			return nil, fmt.Errorf("cart backend %q requires a database", BackendSQL)
		}
		return SQLFactory(deps.DB), nil
	case BackendFile:
		return FileFactory(cfg.FileDir), nil
	case BackendMemory:
		return NewMemory().Factory(), nil
	default:
		return nil, fmt.Errorf("unsupported cart backend %q", cfg.Backend)
	}
}
