// Package persist implements C5 (KGPersister): writes one batch's
// extracted entities and relations through the graph and vector stores,
// with optional semantic dedup, mandatory exact-name dedup with
// description accumulation, and entity-embedding upsert.
package persist

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/engine/llmclient"
	"github.com/kgraph/indexer/internal/errs"
)

// GraphStore is the graph-store port this package writes through
// (engine/graph.GraphStore satisfies it).
type GraphStore interface {
	UpsertEntities(ctx context.Context, projectID string, entities []domain.Entity) error
	UpsertRelations(ctx context.Context, projectID string, relations []domain.Relation) error
}

// VectorUpserter is the vector-store port for entity embeddings
// (engine/vector.Store satisfies it).
type VectorUpserter interface {
	UpsertBatch(ctx context.Context, entries []domain.VectorEntry) error
}

// EntityResolver is the optional semantic-dedup port
// (engine/resolve.Resolver satisfies it via a thin adapter, see
// ResolverFunc).
type EntityResolver interface {
	Resolve(ctx context.Context, entities []domain.Entity) ([]domain.Entity, error)
}

// ResolverFunc adapts a plain function to EntityResolver.
type ResolverFunc func(ctx context.Context, entities []domain.Entity) ([]domain.Entity, error)

func (f ResolverFunc) Resolve(ctx context.Context, entities []domain.Entity) ([]domain.Entity, error) {
	return f(ctx, entities)
}

// Opts configures a Persister.
type Opts struct {
	DescriptionSeparator string // default " | "
	DescriptionMaxLength int    // default 1000
}

// Persister is C5: KGPersister.
type Persister struct {
	graph    GraphStore
	vectors  VectorUpserter
	embedder llmclient.Embedder
	resolver EntityResolver // nil disables semantic dedup
	opts     Opts
}

// New builds a Persister. resolver may be nil to disable semantic dedup
// (SPEC_FULL.md §4.5.2 "when configured and enabled").
func New(graph GraphStore, vectors VectorUpserter, embedder llmclient.Embedder, resolver EntityResolver, opts Opts) *Persister {
	if opts.DescriptionSeparator == "" {
		opts.DescriptionSeparator = " | "
	}
	if opts.DescriptionMaxLength <= 0 {
		opts.DescriptionMaxLength = 1000
	}
	return &Persister{graph: graph, vectors: vectors, embedder: embedder, resolver: resolver, opts: opts}
}

// Stats summarizes one Persist call.
type Stats struct {
	EntityCount       int
	RelationCount     int
	DuplicatesRemoved int
}

// Persist writes one batch through the graph and vector stores.
// projectID is mandatory; its absence is a fatal programmer error
// (SPEC_FULL.md §4.5.1).
func (p *Persister) Persist(ctx context.Context, projectID, documentID string, entities []domain.Entity, relations []domain.Relation) (Stats, error) {
	if projectID == "" {
		return Stats{}, errs.NewContractViolation("persist.projectID", errEmptyProjectID)
	}

	originalCount := len(entities)

	if p.resolver != nil {
		resolved, err := p.resolver.Resolve(ctx, entities)
		if err != nil {
			slog.Warn("persist: entity resolver failed, falling back to unresolved entities", "error", err)
		} else {
			entities = resolved
		}
	}

	deduped := dedupByName(entities, p.opts.DescriptionSeparator, p.opts.DescriptionMaxLength)

	if err := p.graph.UpsertEntities(ctx, projectID, deduped); err != nil {
		return Stats{}, errs.NewPortFailure("graph.UpsertEntities", err)
	}

	vectorEntries, err := p.buildEntityVectors(ctx, projectID, documentID, deduped)
	if err != nil {
		return Stats{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := p.graph.UpsertRelations(gctx, projectID, relations); err != nil {
			return errs.NewPortFailure("graph.UpsertRelations", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := p.vectors.UpsertBatch(gctx, vectorEntries); err != nil {
			return errs.NewPortFailure("vector.UpsertBatch", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	return Stats{
		EntityCount:       len(deduped),
		RelationCount:     len(relations),
		DuplicatesRemoved: originalCount - len(deduped),
	}, nil
}

var errEmptyProjectID = errProjectIDRequired{}

type errProjectIDRequired struct{}

func (errProjectIDRequired) Error() string { return "projectID is required" }

// buildEntityVectors embeds "<name>: <description>" for each deduplicated
// entity and derives a deterministic vector id from (projectID, name), so
// re-ingest updates the existing row rather than duplicating it
// (SPEC_FULL.md §4.5.5).
func (p *Persister) buildEntityVectors(ctx context.Context, projectID, documentID string, entities []domain.Entity) ([]domain.VectorEntry, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	texts := make([]string, len(entities))
	for i, e := range entities {
		texts[i] = e.Name + ": " + e.Description
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, errs.NewPortFailure("embedder.Embed", err)
	}

	entries := make([]domain.VectorEntry, len(entities))
	for i, e := range entities {
		entries[i] = domain.VectorEntry{
			ID:     domain.EntityVectorID(projectID, e.Name),
			Vector: vectors[i],
			Meta: domain.VectorMeta{
				Type:       domain.VectorKindEntity,
				Content:    texts[i],
				DocumentID: documentID,
				ProjectID:  projectID,
			},
		}
	}
	return entries, nil
}

// dedupByName groups entities by normalized name and accumulates
// descriptions across duplicates per SPEC_FULL.md §4.5.3.
func dedupByName(entities []domain.Entity, separator string, maxLen int) []domain.Entity {
	order := make([]string, 0, len(entities))
	byName := make(map[string]domain.Entity, len(entities))

	for _, e := range entities {
		key := domain.NormalizeEntityName(e.Name)
		existing, ok := byName[key]
		if !ok {
			e.Name = key
			byName[key] = e
			order = append(order, key)
			continue
		}
		existing.Description = mergeDescription(existing.Description, e.Description, separator, maxLen)
		if existing.SourceChunkIDs == nil {
			existing.SourceChunkIDs = e.SourceChunkIDs
		} else if e.SourceChunkIDs != nil {
			existing.SourceChunkIDs.Merge(e.SourceChunkIDs)
		}
		byName[key] = existing
	}

	out := make([]domain.Entity, len(order))
	for i, key := range order {
		out[i] = byName[key]
	}
	return out
}

// mergeDescription implements SPEC_FULL.md §4.5.3's accumulation function.
func mergeDescription(existing, new string, separator string, maxLen int) string {
	if new == existing {
		return existing
	}
	if existing != "" && strings.Contains(existing, new) {
		return existing
	}
	candidate := existing
	if candidate == "" {
		candidate = new
	} else if new != "" {
		candidate = existing + separator + new
	}
	if len(candidate) > maxLen {
		candidate = candidate[:maxLen-3] + "..."
	}
	return candidate
}
