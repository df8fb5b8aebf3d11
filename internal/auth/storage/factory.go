package storage

import (
	"fmt"

	"github.com/Phantom-bronze/UserModule/internal/common/config"
)

// NewTokenStore creates a token store based on configuration
func NewTokenStore(cfg *config.TokenStoreConfig) (TokenStore, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryTokenStore(), nil
	case "redis":
		return NewRedisTokenStore(&cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported token store type: %s", cfg.Type)
	}
}
