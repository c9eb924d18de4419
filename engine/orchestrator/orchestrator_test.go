package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/engine/extract"
	"github.com/kgraph/indexer/engine/persist"
)

type fakeChunker struct {
	chunks []domain.Chunk
}

func (c *fakeChunker) Split(sourceDocID, content string) []domain.Chunk {
	return c.chunks
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) EmbedAll(ctx context.Context, projectID string, chunks []domain.Chunk) ([]domain.VectorEntry, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return nil, nil
}

type fakeExtractor struct {
	byChunk map[string]extract.ParsedRecords
	calls   []string
}

func (e *fakeExtractor) Extract(ctx context.Context, projectID, chunkID, chunkText string) extract.ParsedRecords {
	e.calls = append(e.calls, chunkID)
	return e.byChunk[chunkID]
}

type fakePersister struct {
	calls       int
	gotEntities [][]domain.Entity
	err         error
}

func (p *fakePersister) Persist(ctx context.Context, projectID, documentID string, entities []domain.Entity, relations []domain.Relation) (persist.Stats, error) {
	p.calls++
	p.gotEntities = append(p.gotEntities, entities)
	if p.err != nil {
		return persist.Stats{}, p.err
	}
	return persist.Stats{EntityCount: len(entities), RelationCount: len(relations)}, nil
}

func chunkSet(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{ChunkID: "chunk" + string(rune('0'+i)), SourceDocID: "doc1", ChunkIndex: i, Content: "text"}
	}
	return chunks
}

func TestProcess_EmptyDocumentSkipsEverything(t *testing.T) {
	chunker := &fakeChunker{}
	embedder := &fakeEmbedder{}
	extractor := &fakeExtractor{}
	persister := &fakePersister{}
	o := New(chunker, embedder, extractor, persister, Opts{KGBatchSize: 20})

	result, err := o.Process(context.Background(), domain.Document{ID: "doc1"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunkCount)
	assert.Equal(t, 0, embedder.calls)
	assert.Equal(t, 0, persister.calls)
}

func TestProcess_SingleBatchAggregatesCounts(t *testing.T) {
	chunks := chunkSet(3)
	chunker := &fakeChunker{chunks: chunks}
	embedder := &fakeEmbedder{}
	extractor := &fakeExtractor{byChunk: map[string]extract.ParsedRecords{
		chunks[0].ChunkID: {Entities: []domain.Entity{{Name: "A"}}},
		chunks[1].ChunkID: {Entities: []domain.Entity{{Name: "B"}}, Relations: []domain.Relation{{SrcName: "A", TgtName: "B"}}},
		chunks[2].ChunkID: {},
	}}
	persister := &fakePersister{}
	o := New(chunker, embedder, extractor, persister, Opts{KGBatchSize: 20})

	result, err := o.Process(context.Background(), domain.Document{ID: "doc1", Metadata: map[string]string{"projectId": "proj1"}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ChunkCount)
	assert.Equal(t, 2, result.EntityCount)
	assert.Equal(t, 1, result.RelationCount)
	assert.Equal(t, 1, persister.calls)
	assert.Equal(t, 1, embedder.calls)
}

func TestProcess_MultipleBatchesPersistSeparately(t *testing.T) {
	chunks := chunkSet(5)
	chunker := &fakeChunker{chunks: chunks}
	embedder := &fakeEmbedder{}
	extractor := &fakeExtractor{byChunk: map[string]extract.ParsedRecords{}}
	persister := &fakePersister{}
	o := New(chunker, embedder, extractor, persister, Opts{KGBatchSize: 2})

	result, err := o.Process(context.Background(), domain.Document{ID: "doc1"})
	require.NoError(t, err)
	assert.Equal(t, 5, result.ChunkCount)
	assert.Equal(t, 3, persister.calls)
}

func TestProcess_PersistFailureAbortsRemainingBatches(t *testing.T) {
	chunks := chunkSet(4)
	chunker := &fakeChunker{chunks: chunks}
	embedder := &fakeEmbedder{}
	extractor := &fakeExtractor{byChunk: map[string]extract.ParsedRecords{}}
	persister := &fakePersister{err: errors.New("graph down")}
	o := New(chunker, embedder, extractor, persister, Opts{KGBatchSize: 2})

	_, err := o.Process(context.Background(), domain.Document{ID: "doc1"})
	require.Error(t, err)
	assert.Equal(t, 1, persister.calls)
}

func TestProcess_EmbedFailurePropagatesBeforeExtraction(t *testing.T) {
	chunks := chunkSet(2)
	chunker := &fakeChunker{chunks: chunks}
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	extractor := &fakeExtractor{}
	persister := &fakePersister{}
	o := New(chunker, embedder, extractor, persister, Opts{KGBatchSize: 20})

	_, err := o.Process(context.Background(), domain.Document{ID: "doc1"})
	require.Error(t, err)
	assert.Len(t, extractor.calls, 0)
	assert.Equal(t, 0, persister.calls)
}
