package core

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// SearchIndexKey is the Redis hash holding product documents by id.
const SearchIndexKey = "product_search_index"

// SearchIndex is the secondary search projection of the catalog. It is
// synchronized best-effort by the event worker; search queries themselves
// run against the primary store.
type SearchIndex interface {
	Index(ctx context.Context, p Product) error
	Remove(ctx context.Context, id string) error
}

// RedisSearchIndex stores product JSON documents in a Redis hash.
type RedisSearchIndex struct {
	client *redis.Client
}

func NewRedisSearchIndex(client *redis.Client) *RedisSearchIndex {
	return &RedisSearchIndex{client: client}
}

func (s *RedisSearchIndex) Index(ctx context.Context, p Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, SearchIndexKey, p.ID, doc).Err()
}

func (s *RedisSearchIndex) Remove(ctx context.Context, id string) error {
	return s.client.HDel(ctx, SearchIndexKey, id).Err()
}

// NoopSearchIndex is used when the search projection is disabled.
type NoopSearchIndex struct{}

func (NoopSearchIndex) Index(ctx context.Context, p Product) error { return nil }
func (NoopSearchIndex) Remove(ctx context.Context, id string) error { return nil }
