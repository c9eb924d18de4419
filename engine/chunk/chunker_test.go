package chunk

import (
	"strings"
	"testing"
)

func newTestChunker(t *testing.T, chunkSize, overlap int) *Chunker {
	t.Helper()
	tok, err := NewTokenizer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewChunker(tok, chunkSize, overlap)
}

func TestSplit_EmptyInput(t *testing.T) {
	c := newTestChunker(t, 20, 5)
	if got := c.Split("doc-1", ""); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestSplit_HappyPath(t *testing.T) {
	c := newTestChunker(t, 20, 5)
	words := make([]string, 60)
	for i := range words {
		words[i] = "word"
	}
	content := strings.Join(words, " ")

	chunks := c.Split("doc-1", content)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.SourceDocID != "doc-1" {
			t.Errorf("chunk %d: wrong source doc id %q", i, ch.SourceDocID)
		}
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d: wrong index %d", i, ch.ChunkIndex)
		}
		if ch.TokenCount > 20 {
			t.Errorf("chunk %d: token count %d exceeds chunkSize", i, ch.TokenCount)
		}
		if ch.ChunkID == "" {
			t.Errorf("chunk %d: missing chunk id", i)
		}
	}
}

func TestSplit_SingleSmallChunk(t *testing.T) {
	c := newTestChunker(t, 1200, 100)
	chunks := c.Split("doc-1", "a short document")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}
