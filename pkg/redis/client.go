package redis

import (
	"github.com/redis/go-redis/v9"

	"voyagemail/internal/config"
)

// NewClient builds the Redis client backing the duplicate-message guard.
// The caller owns the client and closes it at the end of the pass.
func NewClient(cfg config.DedupeConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
