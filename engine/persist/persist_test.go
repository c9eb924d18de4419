package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/internal/errs"
)

type fakeGraph struct {
	calls              []string
	upsertEntitiesErr  error
	upsertRelationsErr error
	gotEntities        []domain.Entity
	gotRelations       []domain.Relation
}

func (g *fakeGraph) UpsertEntities(ctx context.Context, projectID string, entities []domain.Entity) error {
	g.calls = append(g.calls, "entities")
	g.gotEntities = entities
	return g.upsertEntitiesErr
}

func (g *fakeGraph) UpsertRelations(ctx context.Context, projectID string, relations []domain.Relation) error {
	g.calls = append(g.calls, "relations")
	g.gotRelations = relations
	return g.upsertRelationsErr
}

type fakeVectors struct {
	err     error
	entries []domain.VectorEntry
	calls   int
}

func (v *fakeVectors) UpsertBatch(ctx context.Context, entries []domain.VectorEntry) error {
	v.calls++
	v.entries = entries
	return v.err
}

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func TestPersist_MissingProjectIDIsContractViolation(t *testing.T) {
	p := New(&fakeGraph{}, &fakeVectors{}, &fakeEmbedder{}, nil, Opts{})
	_, err := p.Persist(context.Background(), "", "doc1", nil, nil)
	require.Error(t, err)
	var cv *errs.ContractViolation
	require.ErrorAsf(t, err, &cv, "expected ContractViolation, got %T", err)
}

func TestPersist_EntitiesWrittenBeforeRelations(t *testing.T) {
	graph := &fakeGraph{}
	p := New(graph, &fakeVectors{}, &fakeEmbedder{}, nil, Opts{})

	entities := []domain.Entity{{Name: "Alice", Type: "PERSON"}}
	relations := []domain.Relation{{SrcName: "Alice", TgtName: "Bob"}}

	_, err := p.Persist(context.Background(), "proj1", "doc1", entities, relations)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(graph.calls), 2)
	assert.Equal(t, []string{"entities", "relations"}, graph.calls[:2])
}

func TestPersist_ExactNameDedupAccumulatesDescription(t *testing.T) {
	graph := &fakeGraph{}
	p := New(graph, &fakeVectors{}, &fakeEmbedder{}, nil, Opts{})

	entities := []domain.Entity{
		{Name: "Acme", Description: "a company"},
		{Name: "Acme", Description: "based in Delaware"},
	}

	stats, err := p.Persist(context.Background(), "proj1", "doc1", entities, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
	require.Len(t, graph.gotEntities, 1)
	assert.Equal(t, "a company | based in Delaware", graph.gotEntities[0].Description)
}

func TestPersist_ResolverFailureFallsBackToUnresolved(t *testing.T) {
	graph := &fakeGraph{}
	failingResolver := ResolverFunc(func(ctx context.Context, entities []domain.Entity) ([]domain.Entity, error) {
		return nil, errors.New("resolver unavailable")
	})
	p := New(graph, &fakeVectors{}, &fakeEmbedder{}, failingResolver, Opts{})

	entities := []domain.Entity{{Name: "Alice", Type: "PERSON"}}
	stats, err := p.Persist(context.Background(), "proj1", "doc1", entities, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntityCount)
}

func TestPersist_EntityVectorsUseNameColonDescription(t *testing.T) {
	graph := &fakeGraph{}
	vectors := &fakeVectors{}
	p := New(graph, vectors, &fakeEmbedder{}, nil, Opts{})

	entities := []domain.Entity{{Name: "Alice", Description: "a researcher"}}
	_, err := p.Persist(context.Background(), "proj1", "doc1", entities, nil)
	require.NoError(t, err)
	require.Len(t, vectors.entries, 1)
	assert.Equal(t, "Alice: a researcher", vectors.entries[0].Meta.Content)
	assert.Equal(t, domain.EntityVectorID("proj1", "Alice"), vectors.entries[0].ID)
}

func TestPersist_GraphFailurePropagatesAsPortFailure(t *testing.T) {
	graph := &fakeGraph{upsertEntitiesErr: errors.New("db down")}
	p := New(graph, &fakeVectors{}, &fakeEmbedder{}, nil, Opts{})

	_, err := p.Persist(context.Background(), "proj1", "doc1", []domain.Entity{{Name: "Alice"}}, nil)
	require.Error(t, err)
	var pf *errs.PortFailure
	require.ErrorAsf(t, err, &pf, "expected PortFailure, got %T", err)
}

func TestPersist_VectorFailurePropagatesAsPortFailure(t *testing.T) {
	graph := &fakeGraph{}
	vectors := &fakeVectors{err: errors.New("qdrant down")}
	p := New(graph, vectors, &fakeEmbedder{}, nil, Opts{})

	_, err := p.Persist(context.Background(), "proj1", "doc1", []domain.Entity{{Name: "Alice"}}, nil)
	require.Error(t, err)
	var pf *errs.PortFailure
	require.ErrorAsf(t, err, &pf, "expected PortFailure, got %T", err)
}

func TestMergeDescription_IdentitySubstringConcatenateTruncate(t *testing.T) {
	assert.Equal(t, "same", mergeDescription("same", "same", " | ", 1000))
	assert.Equal(t, "a long description", mergeDescription("a long description", "long", " | ", 1000))
	assert.Equal(t, "first | second", mergeDescription("first", "second", " | ", 1000))

	got := mergeDescription("12345", "67890", "-", 7)
	require.Len(t, got, 7)
	assert.Equal(t, "...", got[len(got)-3:])
}
