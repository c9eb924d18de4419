package chunk

import (
	"context"
	"fmt"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/engine/llmclient"
)

// KVWriter persists chunk content keyed by chunk id, the port ChunkEmbedder
// writes through before embedding (SPEC_FULL.md §6, engine/kvstore).
type KVWriter interface {
	PutChunk(ctx context.Context, chunk domain.Chunk) error
}

// VectorUpserter is the subset of engine/vector.Store's surface
// ChunkEmbedder needs: bulk upsert of chunk vectors.
type VectorUpserter interface {
	UpsertBatch(ctx context.Context, entries []domain.VectorEntry) error
}

// Embedder batches chunks through the embedding port, writes chunk content
// to the KV store, and bulk-upserts vectors (C3). Storage writes and
// embedding batches may overlap across batches; the final bulk vector
// upsert happens only after every batch has embedded successfully
// (SPEC_FULL.md §4.3).
type Embedder struct {
	embedder  llmclient.Embedder
	kv        KVWriter
	vectors   VectorUpserter
	batchSize int
}

// NewEmbedder creates a ChunkEmbedder. Default batchSize is 32
// (SPEC_FULL.md §9).
func NewEmbedder(embedder llmclient.Embedder, kv KVWriter, vectors VectorUpserter, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Embedder{embedder: embedder, kv: kv, vectors: vectors, batchSize: batchSize}
}

// EmbedAll writes every chunk's content to the KV store, embeds all chunks
// in batches of batchSize, and performs one final bulk vector upsert
// preserving input order. Returns the resulting vector entries for callers
// that need to report counts.
func (e *Embedder) EmbedAll(ctx context.Context, projectID string, chunks []domain.Chunk) ([]domain.VectorEntry, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	for _, ch := range chunks {
		if err := e.kv.PutChunk(ctx, ch); err != nil {
			return nil, fmt.Errorf("chunk: put chunk %s: %w", ch.ChunkID, err)
		}
	}

	entries := make([]domain.VectorEntry, 0, len(chunks))
	for start := 0; start < len(chunks); start += e.batchSize {
		end := start + e.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Content
		}

		vecs, err := e.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("chunk: embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("chunk: embed batch [%d:%d]: expected %d vectors, got %d", start, end, len(batch), len(vecs))
		}

		for i, ch := range batch {
			entries = append(entries, domain.VectorEntry{
				ID:     ch.ChunkID,
				Vector: vecs[i],
				Meta: domain.VectorMeta{
					Type:        domain.VectorKindChunk,
					Content:     ch.Content,
					DocumentID:  ch.SourceDocID,
					ProjectID:   projectID,
					ChunkIndex:  ch.ChunkIndex,
					HasChunkIdx: true,
				},
			})
		}
	}

	if err := e.vectors.UpsertBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("chunk: bulk vector upsert: %w", err)
	}
	return entries, nil
}
