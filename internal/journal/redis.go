// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the journal keys.
	Prefix string
	Retain int
}

// RedisStore keeps recent outcomes in a capped list and counts in a hash.
type RedisStore struct {
	client    *redis.Client
	listKey   string
	countsKey string
	retain    int
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return newRedisStore(client, cfg.Prefix, cfg.Retain), nil
}

func newRedisStore(client *redis.Client, prefix string, retain int) *RedisStore {
	if prefix == "" {
		prefix = "astrorhythm:handoff"
	}
	if retain <= 0 {
		retain = DefaultCapacity
	}
	return &RedisStore{
		client:    client,
		listKey:   prefix + ":outcomes",
		countsKey: prefix + ":counts",
		retain:    retain,
	}
}

func countField(platform, state string) string {
	return platform + "|" + state
}

func (s *RedisStore) Record(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis: marshal outcome: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, s.listKey, data)
		p.LTrim(ctx, s.listKey, 0, int64(s.retain-1))
		p.HIncrBy(ctx, s.countsKey, countField(e.Platform, e.State), 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: record outcome: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.retain {
		limit = s.retain
	}
	vals, err := s.client.LRange(ctx, s.listKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read outcomes: %w", err)
	}
	out := make([]Entry, 0, len(vals))
	for _, v := range vals {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("redis: decode outcome: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) Summary(ctx context.Context) (Summary, error) {
	fields, err := s.client.HGetAll(ctx, s.countsKey).Result()
	if err != nil {
		return Summary{}, fmt.Errorf("redis: read counts: %w", err)
	}
	sum := newSummary()
	for field, raw := range fields {
		platform, state, ok := strings.Cut(field, "|")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Summary{}, fmt.Errorf("redis: count %q: %w", field, err)
		}
		sum.add(platform, state, n)
	}
	return sum, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
