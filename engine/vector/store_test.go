package vector

import (
	"testing"

	"github.com/kgraph/indexer/engine/domain"
)

func TestMetaPayloadRoundTrip(t *testing.T) {
	m := domain.VectorMeta{
		Type:        domain.VectorKindChunk,
		Content:     "hello world",
		DocumentID:  "doc-1",
		ProjectID:   "proj-1",
		ChunkIndex:  3,
		HasChunkIdx: true,
	}
	payload := metaToPayload(m)
	got := payloadToMeta(payload)

	if got.Type != m.Type || got.Content != m.Content || got.DocumentID != m.DocumentID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, m)
	}
	if !got.HasChunkIdx || got.ChunkIndex != 3 {
		t.Fatalf("expected chunk_index=3, got %+v", got)
	}
}

func TestMetaPayloadRoundTrip_EntityNoChunkIndex(t *testing.T) {
	m := domain.VectorMeta{Type: domain.VectorKindEntity, Content: "MIT: a university", ProjectID: "proj-1"}
	got := payloadToMeta(metaToPayload(m))
	if got.HasChunkIdx {
		t.Fatalf("expected HasChunkIdx=false for entity vector, got %+v", got)
	}
}

func TestFieldMatch(t *testing.T) {
	cond := fieldMatch("document_id", "doc-1")
	field := cond.GetField()
	if field == nil || field.GetKey() != "document_id" {
		t.Fatalf("unexpected condition: %+v", cond)
	}
	if field.GetMatch().GetKeyword() != "doc-1" {
		t.Fatalf("expected keyword doc-1, got %+v", field.GetMatch())
	}
}
