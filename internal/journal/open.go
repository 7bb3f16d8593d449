// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"fmt"
)

// DefaultCapacity is the number of entries a store retains when unset.
const DefaultCapacity = 1000

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Capacity int
	SQLite   SQLiteConfig
	Redis    RedisConfig
}

// Open creates the configured Store. An empty backend selects memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(cfg.Capacity), nil
	case BackendSQLite:
		sc := cfg.SQLite
		if sc.Retain <= 0 {
			sc.Retain = cfg.Capacity
		}
		return OpenSQLite(ctx, sc)
	case BackendRedis:
		rc := cfg.Redis
		if rc.Retain <= 0 {
			rc.Retain = cfg.Capacity
		}
		return OpenRedis(ctx, rc)
	default:
		return nil, fmt.Errorf("journal: unknown backend %q", cfg.Backend)
	}
}
