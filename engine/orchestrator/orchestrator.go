// Package orchestrator implements C7: the per-document driver that wires
// C2-C6 into the KG-batch loop described by SPEC_FULL.md §4.7.
package orchestrator

import (
	"context"
	"sync"

	"github.com/kgraph/indexer/engine/docgate"
	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/engine/extract"
	"github.com/kgraph/indexer/engine/persist"
	"github.com/kgraph/indexer/pkg/fn"
)

// embedInput bundles EmbedAll's arguments into the single In type
// fn.Stage composition requires.
type embedInput struct {
	projectID string
	chunks    []domain.Chunk
}

// persistInput bundles Persist's arguments into the single In type
// fn.Stage composition requires.
type persistInput struct {
	projectID  string
	documentID string
	entities   []domain.Entity
	relations  []domain.Relation
}

// Chunker is C2's port surface this package needs.
type Chunker interface {
	Split(sourceDocID, content string) []domain.Chunk
}

// ChunkEmbedder is C3's port surface this package needs.
type ChunkEmbedder interface {
	EmbedAll(ctx context.Context, projectID string, chunks []domain.Chunk) ([]domain.VectorEntry, error)
}

// Extractor is C4's port surface this package needs.
type Extractor interface {
	Extract(ctx context.Context, projectID, chunkID, chunkText string) extract.ParsedRecords
}

// Persister is C5's port surface this package needs.
type Persister interface {
	Persist(ctx context.Context, projectID, documentID string, entities []domain.Entity, relations []domain.Relation) (persist.Stats, error)
}

// Opts configures an Orchestrator.
type Opts struct {
	KGBatchSize int // default 20
}

// Orchestrator is C7: it drives one document through chunking, chunk
// embedding, batched KG extraction, and persistence.
type Orchestrator struct {
	chunker   Chunker
	embedder  ChunkEmbedder
	extractor Extractor
	persister Persister
	batchSize int
}

// New builds an Orchestrator.
func New(chunker Chunker, embedder ChunkEmbedder, extractor Extractor, persister Persister, opts Opts) *Orchestrator {
	batchSize := opts.KGBatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Orchestrator{chunker: chunker, embedder: embedder, extractor: extractor, persister: persister, batchSize: batchSize}
}

// Process implements docgate.Pipeline: split, embed, then walk the chunks in
// KG batches, persisting store-as-you-go so a later batch's failure never
// loses an earlier batch's work (SPEC_FULL.md §4.7). The embed and persist
// steps run as fn.TracedStage spans so a document's ingestion is visible as
// one trace across C3 and C5.
func (o *Orchestrator) Process(ctx context.Context, doc domain.Document) (docgate.Result, error) {
	projectID := doc.ProjectID()

	chunks := o.chunker.Split(doc.ID, doc.Content)
	if len(chunks) == 0 {
		return docgate.Result{}, nil
	}

	embedStage := fn.TracedStage("orchestrator.embed_chunks", fn.Stage[embedInput, []domain.VectorEntry](
		func(ctx context.Context, in embedInput) fn.Result[[]domain.VectorEntry] {
			entries, err := o.embedder.EmbedAll(ctx, in.projectID, in.chunks)
			if err != nil {
				return fn.Err[[]domain.VectorEntry](err)
			}
			return fn.Ok(entries)
		},
	))
	if r := embedStage(ctx, embedInput{projectID: projectID, chunks: chunks}); r.IsErr() {
		_, err := r.Unwrap()
		return docgate.Result{}, err
	}

	persistStage := fn.TracedStage("orchestrator.persist_batch", fn.Stage[persistInput, persist.Stats](
		func(ctx context.Context, in persistInput) fn.Result[persist.Stats] {
			stats, err := o.persister.Persist(ctx, in.projectID, in.documentID, in.entities, in.relations)
			if err != nil {
				return fn.Err[persist.Stats](err)
			}
			return fn.Ok(stats)
		},
	))

	var entityCount, relationCount int
	for start := 0; start < len(chunks); start += o.batchSize {
		end := start + o.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		entities, relations := o.extractBatch(ctx, projectID, batch)

		r := persistStage(ctx, persistInput{projectID: projectID, documentID: doc.ID, entities: entities, relations: relations})
		if r.IsErr() {
			_, err := r.Unwrap()
			return docgate.Result{}, err
		}
		stats, _ := r.Unwrap()
		entityCount += stats.EntityCount
		relationCount += stats.RelationCount
	}

	return docgate.Result{
		ChunkCount:    len(chunks),
		EntityCount:   entityCount,
		RelationCount: relationCount,
	}, nil
}

// extractBatch fans out one Extract call per chunk in the batch
// concurrently and waits for all of them; KGExtractor itself swallows
// per-chunk LLM failures (SPEC_FULL.md §4.4.6), so there is no error to
// propagate here, only degraded-but-present results to concatenate.
func (o *Orchestrator) extractBatch(ctx context.Context, projectID string, batch []domain.Chunk) ([]domain.Entity, []domain.Relation) {
	results := make([]extract.ParsedRecords, len(batch))

	var wg sync.WaitGroup
	wg.Add(len(batch))
	for i, ch := range batch {
		go func(i int, ch domain.Chunk) {
			defer wg.Done()
			results[i] = o.extractor.Extract(ctx, projectID, ch.ChunkID, ch.Content)
		}(i, ch)
	}
	wg.Wait()

	var entities []domain.Entity
	var relations []domain.Relation
	for _, r := range results {
		entities = append(entities, r.Entities...)
		relations = append(relations, r.Relations...)
	}
	return entities, relations
}
