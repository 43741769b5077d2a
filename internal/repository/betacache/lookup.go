// Package betacache caches topic-word weights in a key-value store in front
// of the engine round trip that resolves them.
package betacache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "beta:"

// store is the consumer interface for the beta cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

// CachedLookup caches word betas per model, topic and word.
type CachedLookup struct {
	inner      domain.WordBetaLookup
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.WordBetaLookup,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedLookup {
	return &CachedLookup{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// WordBeta returns a cached weight or asks the inner lookup.
func (c *CachedLookup) WordBeta(ctx context.Context, model, topic, word string) (int, error) {
	key := cacheKey(model, topic, word)

	if beta, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		domain.StatsFromContext(ctx).AddCacheHit()
		return beta, nil
	}

	c.incCache("miss")

	beta, err := c.inner.WordBeta(ctx, model, topic, word)
	if err != nil {
		return 0, fmt.Errorf("word beta: %w", err)
	}

	c.putToCache(ctx, key, beta)
	return beta, nil
}

// Purge drops every cached weight of model. Called when a model is re-indexed or deleted.
func (c *CachedLookup) Purge(ctx context.Context, model string) error {
	keys, err := c.store.Scan(ctx, modelPrefix(model)+"*")
	if err != nil {
		return fmt.Errorf("scan beta cache %s: %w", model, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("purge beta cache %s: %w", model, err)
	}
	c.logger.Info("Purged beta cache", zap.String("model", model), zap.Int("keys", len(keys)))
	return nil
}

func (c *CachedLookup) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedLookup) getFromCache(ctx context.Context, key string) (int, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached beta", zap.String("key", key), zap.Error(err))
		}
		return 0, false
	}
	if len(data) == 0 {
		return 0, false
	}

	beta, err := strconv.Atoi(string(data))
	if err != nil {
		c.logger.Warn("Failed to parse cached beta", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return beta, true
}

func (c *CachedLookup) putToCache(ctx context.Context, key string, beta int) {
	if err := c.store.SetWithTTL(ctx, key, []byte(strconv.Itoa(beta)), c.ttl); err != nil {
		c.logger.Warn("Failed to cache beta", zap.String("key", key), zap.Error(err))
	}
}

// Key pattern: topicdex:beta:{model}:{topic}:{word}

func modelPrefix(model string) string {
	return cacheKeyPrefix + model + ":"
}

func cacheKey(model, topic, word string) string {
	return modelPrefix(model) + topic + ":" + word
}
