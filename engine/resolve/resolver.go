package resolve

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/kgraph/indexer/engine/domain"
)

// Algorithm selects the clustering strategy applied within each type
// block.
type Algorithm string

const (
	AlgorithmThreshold Algorithm = "threshold"
	AlgorithmDBSCAN    Algorithm = "dbscan"
)

const noDescriptionPlaceholder = "No description available"

// Opts configures a Resolver.
type Opts struct {
	Weights       Weights
	Threshold     float64
	Algorithm     Algorithm
	DBSCANMinPts  int
	BatchSize     int // matrix sequential/parallel cutover, default 200
	Workers       int // worker pool size when batched, default 4
	MaxAliases    int
	Descriptions  string // separator joining merged descriptions, default " | "
}

// Resolver is C6: EntityResolver/EntitySimilarityCalculator/EntityClusterer.
type Resolver struct {
	opts Opts
}

// New builds a Resolver from the given options, filling in the documented
// defaults for any zero-valued numeric field.
func New(opts Opts) *Resolver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.DBSCANMinPts <= 0 {
		opts.DBSCANMinPts = 1
	}
	if opts.Descriptions == "" {
		opts.Descriptions = " | "
	}
	if opts.MaxAliases <= 0 {
		opts.MaxAliases = 5
	}
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmThreshold
	}
	return &Resolver{opts: opts}
}

// Result is the resolver's output for one batch of entities
// (SPEC_FULL.md §4.6.6).
type Result struct {
	ResolvedEntities   []domain.Entity
	Clusters           []domain.EntityCluster
	OriginalCount      int
	ResolvedCount      int
	DuplicatesRemoved  int
	ClustersFound      int
	ProcessingDuration time.Duration
	DeduplicationRate  float64
	AvgTimePerEntity   time.Duration
}

// timeNow is swapped out in tests so ProcessingDuration is deterministic.
var timeNow = time.Now

// Resolve clusters entities within each type block and merges each
// cluster into a canonical entity, per SPEC_FULL.md §4.6.
func (r *Resolver) Resolve(ctx context.Context, entities []domain.Entity) (Result, error) {
	start := timeNow()
	originalCount := len(entities)

	var resolved []domain.Entity
	var clusters []domain.EntityCluster

	for _, indices := range blocks(entities) {
		matrix, err := buildMatrix(ctx, entities, indices, r.opts.Weights, r.opts.BatchSize, r.opts.Workers)
		if err != nil {
			return Result{}, err
		}

		var localClusters [][]int
		switch r.opts.Algorithm {
		case AlgorithmDBSCAN:
			localClusters = clusterDBSCAN(matrix, r.opts.Threshold, r.opts.DBSCANMinPts)
		default:
			localClusters = clusterThreshold(matrix, r.opts.Threshold)
		}

		for _, local := range localClusters {
			global := make([]int, len(local))
			for i, li := range local {
				global[i] = indices[li]
			}
			cluster := merge(entities, global, r.opts)
			resolved = append(resolved, cluster.CanonicalEntity)
			clusters = append(clusters, cluster)
		}
	}
	clustersFound := len(clusters)

	duration := timeNow().Sub(start)
	resolvedCount := len(resolved)
	duplicatesRemoved := originalCount - resolvedCount

	var dedupRate float64
	var avgTime time.Duration
	if originalCount > 0 {
		dedupRate = float64(duplicatesRemoved) / float64(originalCount)
		avgTime = duration / time.Duration(originalCount)
	}

	return Result{
		ResolvedEntities:   resolved,
		Clusters:           clusters,
		OriginalCount:      originalCount,
		ResolvedCount:      resolvedCount,
		DuplicatesRemoved:  duplicatesRemoved,
		ClustersFound:      clustersFound,
		ProcessingDuration: duration,
		DeduplicationRate:  dedupRate,
		AvgTimePerEntity:   avgTime,
	}, nil
}

// merge collapses a cluster of global entity indices into one
// EntityCluster, per SPEC_FULL.md §4.6.5: canonical is the longest name,
// other members' names become aliases (capped at MaxAliases), and
// descriptions are concatenated with the configured separator.
func merge(entities []domain.Entity, indices []int, opts Opts) domain.EntityCluster {
	if len(indices) == 1 {
		return domain.EntityCluster{
			CanonicalEntity:   entities[indices[0]],
			MemberIndices:     indices,
			MergedDescription: entities[indices[0]].Description,
		}
	}

	sortedIndices := append([]int{}, indices...)
	sort.Ints(sortedIndices)

	canonicalIdx := sortedIndices[0]
	for _, idx := range sortedIndices[1:] {
		if len(entities[idx].Name) > len(entities[canonicalIdx].Name) {
			canonicalIdx = idx
		}
	}
	canonical := entities[canonicalIdx]

	var aliases []string
	var descriptions []string
	chunkIDs := domain.NewBoundedIDSet(domain.DefaultMaxSourceChunkIDs)
	seen := map[string]bool{canonical.Name: true}

	for _, idx := range sortedIndices {
		e := entities[idx]
		if idx != canonicalIdx && !seen[e.Name] {
			aliases = append(aliases, e.Name)
			seen[e.Name] = true
		}
		if d := strings.TrimSpace(e.Description); d != "" {
			descriptions = append(descriptions, d)
		}
		if e.SourceChunkIDs != nil {
			chunkIDs.Merge(e.SourceChunkIDs)
		}
	}

	if len(aliases) > opts.MaxAliases {
		aliases = aliases[:opts.MaxAliases]
	}

	mergedDescription := noDescriptionPlaceholder
	if len(descriptions) > 0 {
		mergedDescription = strings.Join(dedupStrings(descriptions), opts.Descriptions)
	}

	canonical.Description = mergedDescription
	if chunkIDs.Len() > 0 {
		canonical.SourceChunkIDs = chunkIDs
	}

	return domain.EntityCluster{
		CanonicalEntity:   canonical,
		MemberIndices:     sortedIndices,
		Aliases:           aliases,
		MergedDescription: mergedDescription,
	}
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
