package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"

	"studio-portrait/internal/algorithms"
)

// Portrait is a finished, encoded result as served to clients
type Portrait struct {
	Image []byte
	Gamma float64
	Face  *algorithms.BoundingBox
}

// ResultCache keeps encoded portraits keyed by a digest of the uploaded bytes.
// The pipeline is deterministic, so identical uploads share one result.
type ResultCache struct {
	client *ristretto.Cache
	cache  *cache.Cache[*Portrait]
	ttl    time.Duration
}

func NewResultCache(numCounters, maxCost int64, ttl time.Duration) (*ResultCache, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	return &ResultCache{
		client: ristrettoCache,
		cache:  cache.New[*Portrait](ristrettoStore),
		ttl:    ttl,
	}, nil
}

func (c *ResultCache) Get(ctx context.Context, key string) (*Portrait, bool) {
	portrait, err := c.cache.Get(ctx, key)
	if err != nil || portrait == nil {
		return nil, false
	}
	return portrait, true
}

func (c *ResultCache) Set(ctx context.Context, key string, portrait *Portrait) error {
	options := []store.Option{store.WithCost(int64(len(portrait.Image)))}
	if c.ttl > 0 {
		options = append(options, store.WithExpiration(c.ttl))
	}
	if err := c.cache.Set(ctx, key, portrait, options...); err != nil {
		return err
	}
	// ristretto applies writes asynchronously
	c.client.Wait()
	return nil
}

func (c *ResultCache) Close() {
	c.client.Close()
}

// CacheKey is the hex SHA-256 of an upload
func CacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
