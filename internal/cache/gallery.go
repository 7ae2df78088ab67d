// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// gallery.go provides a Valkey-backed cache for public gallery responses.
// Browsing the gallery is by far the hottest read path, so the serialized
// JSON for each (tag, page) combination is cached and invalidated whenever
// a prompt is published, updated, or deleted.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// galleryKeyPrefix is the Valkey key prefix for cached gallery pages.
	galleryKeyPrefix = "gallery:"

	// DefaultGalleryTTL is how long a gallery response stays cached.
	DefaultGalleryTTL = 5 * time.Minute
)

// GalleryCache manages cached gallery JSON responses in Valkey.
type GalleryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGalleryCache creates a new gallery cache backed by the given Valkey client.
func NewGalleryCache(client *redis.Client, ttl time.Duration) *GalleryCache {
	if ttl == 0 {
		ttl = DefaultGalleryTTL
	}
	return &GalleryCache{client: client, ttl: ttl}
}

// Get retrieves a cached gallery response. Returns false on miss.
func (gc *GalleryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := gc.client.Get(ctx, galleryKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("gallery cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("gallery cache hit", "key", key)
	return val, true
}

// Set stores a serialized gallery response with the configured TTL.
func (gc *GalleryCache) Set(ctx context.Context, key string, body []byte) {
	if err := gc.client.Set(ctx, galleryKeyPrefix+key, body, gc.ttl).Err(); err != nil {
		slog.Warn("gallery cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes all cached gallery pages by scanning for the prefix.
// Called whenever the published prompt set changes, since any page could be
// affected.
func (gc *GalleryCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := gc.client.Scan(ctx, cursor, galleryKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("gallery cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := gc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("gallery cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("gallery cache fully cleared", "deleted", deleted)
	}
}

// PageKey returns the cache key for one gallery page.
func PageKey(tag string, limit, offset int) string {
	if tag == "" {
		tag = "_all"
	}
	return fmt.Sprintf("%s:%d:%d", tag, limit, offset)
}
