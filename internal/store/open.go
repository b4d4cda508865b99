package store

import (
	"context"
	"fmt"

	"github.com/nhle/eminus-watch/internal/model"
)

// Open builds the set store selected by cfg.Backend.
func Open(ctx context.Context, cfg model.StateConfig) (SetStore, error) {
	switch cfg.Backend {
	case "", model.BackendFile:
		return NewFileStore(cfg.Dir), nil

	case model.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)

	case model.BackendRedis:
		s, err := NewRedisStore(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		if err := s.client.Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return s, nil

	case model.BackendS3:
		return NewS3Store(cfg.S3)

	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
