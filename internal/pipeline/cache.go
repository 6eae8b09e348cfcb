package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mvoronin/relobot/internal/database"
)

// CountryCache is the TTL-bounded store of rendered country briefs, keyed by
// the normalized country string. Expired entries read as misses; they are
// physically removed by the opportunistic sweep on write and by the
// scheduled sweep task.
type CountryCache struct {
	store   database.Store
	ttl     time.Duration
	quality QualityConfig
	now     func() time.Time
	logger  *slog.Logger
}

// NewCountryCache creates a CountryCache over the given store.
func NewCountryCache(store database.Store, ttl time.Duration, quality QualityConfig, logger *slog.Logger) *CountryCache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CountryCache{
		store:   store,
		ttl:     ttl,
		quality: quality,
		now:     time.Now,
		logger:  logger.With("component", "country_cache"),
	}
}

// NormalizeCountryKey derives the cache key from a country query.
func NormalizeCountryKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Get returns the cached answer for the key, or "" on miss. An entry older
// than the TTL is a miss. A stored answer that no longer passes the quality
// gate is invalidated and treated as a miss, so a bad entry cannot be
// served twice.
func (c *CountryCache) Get(ctx context.Context, key string) string {
	entry, err := c.store.CachedCountryInfo(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "Country cache read failed, treating as miss", "key", key, "error", err)
		return ""
	}
	if entry == nil {
		return ""
	}

	if c.now().Sub(entry.CreatedAt) > c.ttl {
		return ""
	}

	if !isCountryAnswerCacheable(entry.Answer, c.quality) {
		c.logger.InfoContext(ctx, "Cached answer failed quality re-check, invalidating", "key", key)
		if err := c.store.DeleteCachedCountryInfo(ctx, key); err != nil {
			c.logger.WarnContext(ctx, "Failed to invalidate country cache entry", "key", key, "error", err)
		}
		return ""
	}

	return entry.Answer
}

// Put upserts an answer under the key if it passes the quality gate, then
// opportunistically sweeps entries older than the TTL. Caching failures are
// logged, never surfaced: the answer has already been generated.
func (c *CountryCache) Put(ctx context.Context, key, query, answer string) {
	if !isCountryAnswerCacheable(answer, c.quality) {
		c.logger.DebugContext(ctx, "Answer not cacheable, skipping cache write", "key", key)
		return
	}

	if err := c.store.SaveCachedCountryInfo(ctx, key, query, answer); err != nil {
		c.logger.WarnContext(ctx, "Country cache write failed", "key", key, "error", err)
		return
	}

	if _, err := c.Sweep(ctx); err != nil {
		c.logger.WarnContext(ctx, "Opportunistic cache sweep failed", "error", err)
	}
}

// Sweep deletes every entry older than the TTL and returns the count removed.
func (c *CountryCache) Sweep(ctx context.Context) (int64, error) {
	return c.store.PurgeExpiredCountryInfo(ctx, c.now().Add(-c.ttl))
}
