package resolve

import "github.com/kgraph/indexer/engine/domain"

const unknownType = "UNKNOWN"

// blocks groups entity indices by type, UNKNOWN when the type field is
// blank, so similarity is only ever computed within a block
// (SPEC_FULL.md §4.6.1).
func blocks(entities []domain.Entity) map[string][]int {
	out := make(map[string][]int)
	for i, e := range entities {
		t := e.Type
		if t == "" {
			t = unknownType
		}
		out[t] = append(out[t], i)
	}
	return out
}
