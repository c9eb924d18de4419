package chunk

import (
	"github.com/kgraph/indexer/engine/domain"
)

// Chunker splits document text into an ordered sequence of token-bounded,
// overlapping chunks (C2). Defaults: chunkSize=1200, overlap=100
// (SPEC_FULL.md §4.2, §9).
type Chunker struct {
	tok       *Tokenizer
	chunkSize int
	overlap   int
}

// NewChunker creates a Chunker with the given token window and overlap.
// Overlap must be strictly less than chunkSize; config.Config.Validate
// enforces this upstream.
func NewChunker(tok *Tokenizer, chunkSize, overlap int) *Chunker {
	return &Chunker{tok: tok, chunkSize: chunkSize, overlap: overlap}
}

// Split tokenizes content once, then emits fixed-size sliding windows of
// chunkSize tokens with exactly `overlap` tokens shared between
// chunks[i] and chunks[i+1]. Empty input yields an empty sequence.
func (c *Chunker) Split(sourceDocID, content string) []domain.Chunk {
	if content == "" {
		return nil
	}

	tokens := c.tok.Encode(content)
	if len(tokens) == 0 {
		return nil
	}

	stride := c.chunkSize - c.overlap
	if stride <= 0 {
		stride = c.chunkSize
	}

	var chunks []domain.Chunk
	index := 0
	for start := 0; start < len(tokens); start += stride {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		chunks = append(chunks, domain.Chunk{
			ChunkID:     domain.NewChunkID(),
			SourceDocID: sourceDocID,
			ChunkIndex:  index,
			Content:     c.tok.Decode(window),
			TokenCount:  len(window),
		})
		index++
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
