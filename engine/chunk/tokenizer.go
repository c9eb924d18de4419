// Package chunk implements C2 (Chunker) and C3 (ChunkEmbedder):
// token-bounded overlapping text chunking and batched chunk embedding.
package chunk

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts, encodes, and decodes tokens deterministically — the
// chunker's only contract with the token stream (SPEC_FULL.md §4.2).
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer builds a Tokenizer over the cl100k_base BPE encoding, the
// same encoding OpenAI's text-embedding-3-small and gpt-4o-family models
// use.
func NewTokenizer() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("chunk: load tiktoken encoding: %w", err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Encode returns text as a token-id slice.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode reconstructs text from a token-id slice.
func (t *Tokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
