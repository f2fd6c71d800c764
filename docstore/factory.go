package docstore

import (
	"fmt"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// Store type names accepted by the factory
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
	StoreBadger = "badger"
)

// DefaultFactory implements core.StoreFactory
type DefaultFactory struct{}

// NewDefaultFactory creates a new default store factory
func NewDefaultFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// ValidateConfig checks a store configuration
func ValidateConfig(config core.StoreConfig) error {
	switch config.Type {
	case StoreMemory:
		return nil
	case StoreBolt, StoreBadger:
		if config.Path == "" {
			return fmt.Errorf("store type %s requires a path", config.Type)
		}
		return nil
	default:
		return fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// CreateStore creates a store instance based on configuration
func (f *DefaultFactory) CreateStore(config core.StoreConfig) (core.Store, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}

	switch config.Type {
	case StoreMemory:
		return NewMemoryStore(), nil
	case StoreBolt:
		return NewBoltStore(config.Path)
	case StoreBadger:
		return NewBadgerStore(config.Path)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
