package resolve

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kgraph/indexer/engine/domain"
)

// pair is one upper-triangle index pair within a block.
type pair struct{ i, j int }

// buildMatrix computes the symmetric n×n similarity matrix for one block
// of same-typed entities. Sequential for n <= batchSize; otherwise the
// upper-triangle pairs are partitioned across a fixed-size worker pool
// (SPEC_FULL.md §4.6.3). The pair list is split into contiguous chunks,
// one per worker, and each pair writes only its own cell and that cell's
// mirror, so no two goroutines ever write the same cell.
func buildMatrix(ctx context.Context, entities []domain.Entity, indices []int, w Weights, batchSize, workers int) ([][]float64, error) {
	n := len(indices)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}
	if n < 2 {
		return matrix, nil
	}

	var pairs []pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	compute := func(p pair) {
		a := entities[indices[p.i]]
		b := entities[indices[p.j]]
		score := Score(a, b, w).Final
		matrix[p.i][p.j] = score
		matrix[p.j][p.i] = score
	}

	if n <= batchSize {
		for _, p := range pairs {
			compute(p)
		}
		return matrix, nil
	}

	if workers <= 0 {
		workers = 4
	}
	chunkSize := (len(pairs) + workers - 1) / workers

	g, _ := errgroup.WithContext(ctx)
	for start := 0; start < len(pairs); start += chunkSize {
		end := start + chunkSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := pairs[start:end]
		g.Go(func() error {
			for _, p := range batch {
				compute(p)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matrix, nil
}
