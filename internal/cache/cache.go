// Package cache maps deterministic operation fingerprints to previously
// computed upstream results, with TTL expiry. The cache is strictly
// best-effort: a broken or unreachable backend degrades to recomputation and
// never fails the primary operation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gateway/internal/domain"
)

const keyPrefix = "flowgateway"

// ResultCache is a Redis-backed TTL cache for normalized operation results.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New constructs a ResultCache with the given default TTL.
func New(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ResultCache {
	return &ResultCache{client: client, ttl: ttl, logger: logger}
}

// Key derives the cache fingerprint for (operation, parameters, input hash).
// Parameters are sorted by name before concatenation so semantically identical
// parameter sets always yield the same key regardless of insertion order. The
// input hash discriminates between different files processed with identical
// parameters; pass "" for operations that consume no file.
func (c *ResultCache) Key(operation string, params map[string]any, inputHash string) string {
	parts := []string{keyPrefix, operation}
	if inputHash != "" {
		parts = append(parts, inputHash)
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s:%v", name, params[name]))
	}
	parts = append(parts, strings.Join(pairs, "_"))

	return strings.Join(parts, ":")
}

// Get looks up a cached result. Absent keys and undecodable values are both
// reported as a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.Result, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache: get failed")
		}
		return nil, false
	}
	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache: corrupt entry treated as miss")
		return nil, false
	}
	return &result, true
}

// Set stores a result under key with the configured TTL. Failures are logged
// and swallowed.
func (c *ResultCache) Set(ctx context.Context, key string, result *domain.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache: marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache: set failed")
	}
}

// Ping reports backend reachability for health checks.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
