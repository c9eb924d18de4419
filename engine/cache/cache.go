// Package cache provides a Redis-backed implementation of the extraction
// cache port: memoized LLM results keyed by (projectID, cacheType,
// contentHash), so repeated gleaning passes or re-ingests of identical
// content skip the LLM call entirely (SPEC_FULL.md §3, §6).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get on a cache miss.
var ErrMiss = errors.New("cache: miss")

// Store is a Redis-backed ExtractionCache.
type Store struct {
	client redis.UniversalClient
}

// New creates a Store against the given Redis address and logical DB.
func New(addr string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping redis %s: %w", addr, err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing redis.UniversalClient, for tests.
func NewWithClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// ContentHash deterministically hashes content for cache keying.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func cacheKey(projectID string, cacheType domain.CacheType, contentHash string) string {
	return fmt.Sprintf("extract-cache:%s:%s:%s", projectID, cacheType, contentHash)
}

// Get looks up a memoized extraction result. Returns ErrMiss if absent.
func (s *Store) Get(ctx context.Context, projectID string, cacheType domain.CacheType, contentHash string) (domain.ExtractionCache, error) {
	data, err := s.client.Get(ctx, cacheKey(projectID, cacheType, contentHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ExtractionCache{}, ErrMiss
	}
	if err != nil {
		return domain.ExtractionCache{}, fmt.Errorf("cache: get: %w", err)
	}
	var entry domain.ExtractionCache
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.ExtractionCache{}, fmt.Errorf("cache: unmarshal: %w", err)
	}
	return entry, nil
}

// Put stores a memoized extraction result with no expiry — cache entries
// are invalidated only by content hash change, never by time.
func (s *Store) Put(ctx context.Context, entry domain.ExtractionCache) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	key := cacheKey(entry.ProjectID, entry.CacheType, entry.ContentHash)
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
