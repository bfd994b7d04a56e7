package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/invitation-agent/internal/messaging"
	"github.com/redis/go-redis/v9"
)

const (
	contactCachePrefix = "contacts:"
	contactCacheTTL    = 5 * time.Minute
)

// ContactCache handles contact search caching in Redis
type ContactCache struct {
	client *Client
	ttl    time.Duration
}

// NewContactCache creates a new contact cache
func NewContactCache(client *Client) *ContactCache {
	return &ContactCache{client: client, ttl: contactCacheTTL}
}

// Get retrieves cached contacts for a query
func (c *ContactCache) Get(ctx context.Context, query string) ([]messaging.Contact, error) {
	data, err := c.client.rdb.Get(ctx, contactCachePrefix+query).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read contact cache: %w", err)
	}

	var contacts []messaging.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contacts: %w", err)
	}

	return contacts, nil
}

// Set caches contacts for a query
func (c *ContactCache) Set(ctx context.Context, query string, contacts []messaging.Contact) error {
	if contacts == nil {
		contacts = []messaging.Contact{}
	}
	data, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("failed to marshal contacts: %w", err)
	}

	return c.client.rdb.Set(ctx, contactCachePrefix+query, data, c.ttl).Err()
}

// FlushAll removes all cached contact lookups
func (c *ContactCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := contactCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
