package fetcher

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// Cache stores response bodies by key. A miss returns nil data and no error.
type Cache interface {
	GetCachedResponse(ctx context.Context, key string) ([]byte, error)
	SetCachedResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Cached serves repeat downloads of immutable resources from a Cache.
// Cache failures are logged and fall through to the network.
type Cached struct {
	next  Fetcher
	cache Cache
	ttl   time.Duration
}

// NewCached wraps next. A nil cache returns next unchanged.
func NewCached(next Fetcher, cache Cache, ttl time.Duration) Fetcher {
	if cache == nil {
		return next
	}
	return &Cached{next: next, cache: cache, ttl: ttl}
}

// Download returns the cached body for url or fetches and stores it. Entries
// are keyed by the redacted URL.
func (c *Cached) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	key := Redact(url)
	data, err := c.cache.GetCachedResponse(ctx, key)
	if err != nil {
		zap.L().Warn("fetcher: cache read failed", zap.String("url", key), zap.Error(err))
	}
	if data != nil {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	data, err = ReadAll(ctx, c.next, url)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetCachedResponse(ctx, key, data, c.ttl); err != nil {
		zap.L().Warn("fetcher: cache write failed", zap.String("url", key), zap.Error(err))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// GetJSON decodes the (possibly cached) body of url into v.
func (c *Cached) GetJSON(ctx context.Context, url string, v any) error {
	return getJSON(ctx, c.Download, url, v)
}
