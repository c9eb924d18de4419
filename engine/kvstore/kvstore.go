// Package kvstore provides a Redis-backed implementation of the chunk KV
// store port: chunk content is written once by ChunkEmbedder and never
// mutated again (SPEC_FULL.md §3, §6).
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed chunk content store.
type Store struct {
	client redis.UniversalClient
}

// New creates a Store against the given Redis address and logical DB.
func New(addr string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("kvstore: ping redis %s: %w", addr, err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing redis.UniversalClient, for tests against
// miniredis or a shared connection pool.
func NewWithClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func chunkKey(chunkID string) string { return "chunk:" + chunkID }

// PutChunk writes a chunk's content, keyed by chunk id, with no expiry —
// chunks are a permanent artifact of ingestion.
func (s *Store) PutChunk(ctx context.Context, chunk domain.Chunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("kvstore: marshal chunk %s: %w", chunk.ChunkID, err)
	}
	if err := s.client.Set(ctx, chunkKey(chunk.ChunkID), data, 0).Err(); err != nil {
		return fmt.Errorf("kvstore: set chunk %s: %w", chunk.ChunkID, err)
	}
	return nil
}

// GetChunk reads back a previously stored chunk by id.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (domain.Chunk, error) {
	data, err := s.client.Get(ctx, chunkKey(chunkID)).Bytes()
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("kvstore: get chunk %s: %w", chunkID, err)
	}
	var chunk domain.Chunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return domain.Chunk{}, fmt.Errorf("kvstore: unmarshal chunk %s: %w", chunkID, err)
	}
	return chunk, nil
}

// DeleteChunks removes the given chunks by id. Chunk keys don't carry the
// document id, so the caller supplies the id list; nothing in this module
// records which chunk ids belong to a document.
func (s *Store) DeleteChunks(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	keys := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		keys[i] = chunkKey(id)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("kvstore: delete %d chunks: %w", len(chunkIDs), err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
