// Package wiring builds the concrete adapter graph shared by cmd/indexer
// and cmd/server: every capability port bound to its real implementation,
// assembled from one internal/config.Config.
package wiring

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kgraph/indexer/engine/cache"
	"github.com/kgraph/indexer/engine/chunk"
	"github.com/kgraph/indexer/engine/docgate"
	"github.com/kgraph/indexer/engine/docstatus"
	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/engine/extract"
	"github.com/kgraph/indexer/engine/graph"
	"github.com/kgraph/indexer/engine/kvstore"
	"github.com/kgraph/indexer/engine/llmclient"
	"github.com/kgraph/indexer/engine/orchestrator"
	"github.com/kgraph/indexer/engine/persist"
	"github.com/kgraph/indexer/engine/resolve"
	"github.com/kgraph/indexer/engine/vector"
	"github.com/kgraph/indexer/internal/config"
	"github.com/kgraph/indexer/pkg/ollama"
)

// System bundles every adapter an entrypoint needs, plus the two
// capabilities every entrypoint drives a document through: the gate (C1)
// and the orchestrator (C7).
type System struct {
	Gate      *docgate.Gate
	Orch      *orchestrator.Orchestrator
	DocStatus *docstatus.Store

	driver    neo4j.DriverWithContext
	chunkVec  *vector.Store
	entityVec *vector.Store
	kv        *kvstore.Store
	extCache  *cache.Store
}

// Close releases every live connection. Safe to call once after Build
// returns successfully.
func (s *System) Close(ctx context.Context) {
	if s.driver != nil {
		_ = s.driver.Close(ctx)
	}
	if s.chunkVec != nil {
		_ = s.chunkVec.Close()
	}
	if s.entityVec != nil {
		_ = s.entityVec.Close()
	}
	if s.kv != nil {
		_ = s.kv.Close()
	}
	if s.extCache != nil {
		_ = s.extCache.Close()
	}
	if s.DocStatus != nil {
		_ = s.DocStatus.Close()
	}
}

// Build validates cfg and wires every port adapter into a ready-to-use
// System: Neo4j graph store, two Qdrant collections (chunks and entities,
// per engine/vector.Store's one-collection-per-instance contract), Redis
// kv/status/cache stores, the configured LLM and embedding provider, the
// tokenizer-backed chunker and chunk embedder, the KG extractor, an
// optional entity resolver bridged into persist.EntityResolver, the
// persister, and finally the document gate and orchestrator that sit on
// top of all of it.
func Build(ctx context.Context, cfg config.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("wiring: neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("wiring: neo4j connectivity: %w", err)
	}
	graphStore := graph.New(driver)

	chunkVec, err := vector.New(cfg.QdrantAddr, cfg.QdrantChunkColl)
	if err != nil {
		return nil, fmt.Errorf("wiring: qdrant chunk store: %w", err)
	}
	if err := chunkVec.EnsureCollection(ctx, cfg.EmbeddingDims); err != nil {
		return nil, fmt.Errorf("wiring: ensure chunk collection: %w", err)
	}
	entityVec, err := vector.New(cfg.QdrantAddr, cfg.QdrantEntityColl)
	if err != nil {
		return nil, fmt.Errorf("wiring: qdrant entity store: %w", err)
	}
	if err := entityVec.EnsureCollection(ctx, cfg.EmbeddingDims); err != nil {
		return nil, fmt.Errorf("wiring: ensure entity collection: %w", err)
	}

	kv, err := kvstore.New(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("wiring: redis kv store: %w", err)
	}
	docStatus, err := docstatus.New(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("wiring: redis doc status: %w", err)
	}

	var extCache *cache.Store
	if cfg.EnableCache {
		extCache, err = cache.New(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("wiring: redis extraction cache: %w", err)
		}
	}

	var llm llmclient.LLM
	switch cfg.LLMProvider {
	case "anthropic":
		llm = llmclient.WrapLLM(llmclient.NewAnthropicChat(cfg.AnthropicAPIKey, cfg.LLMModel), llmclient.DefaultResilientOpts)
	default:
		llm = llmclient.WrapLLM(llmclient.NewOpenAIChat(cfg.OpenAIAPIKey, cfg.LLMModel), llmclient.DefaultResilientOpts)
	}
	var embedder llmclient.Embedder
	switch cfg.EmbeddingProvider {
	case "ollama":
		embedder = llmclient.WrapEmbedder(ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbeddingModel), llmclient.DefaultResilientOpts)
	default:
		embedder = llmclient.WrapEmbedder(llmclient.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDims), llmclient.DefaultResilientOpts)
	}

	tok, err := chunk.NewTokenizer()
	if err != nil {
		return nil, fmt.Errorf("wiring: tokenizer: %w", err)
	}
	chunker := chunk.NewChunker(tok, cfg.ChunkSize, cfg.ChunkOverlap)
	chunkEmbedder := chunk.NewEmbedder(embedder, kv, chunkVec, cfg.EmbedBatchSize)

	extractor := extract.NewExtractor(llm, extCache, extract.Opts{
		PromptConfig:    extract.PromptConfig{EntityTypes: cfg.EntityTypes, Language: cfg.Language},
		NameMaxLength:   cfg.EntityNameMaxLength,
		GleaningEnabled: cfg.GleaningEnabled,
		MaxPasses:       cfg.MaxGleaningPasses,
		CacheEnabled:    cfg.EnableCache,
		ContentHasher:   cache.ContentHash,
	})

	var resolver persist.EntityResolver
	if cfg.ResolverEnabled {
		algorithm := resolve.AlgorithmThreshold
		if cfg.ClusterAlgorithm == "dbscan" {
			algorithm = resolve.AlgorithmDBSCAN
		}
		resolveEngine := resolve.New(resolve.Opts{
			Weights: resolve.Weights{
				Jaccard:      cfg.SimilarityWeights.Jaccard,
				Containment:  cfg.SimilarityWeights.Containment,
				Levenshtein:  cfg.SimilarityWeights.Levenshtein,
				Abbreviation: cfg.SimilarityWeights.Abbreviation,
			},
			Threshold:    cfg.SimilarityThreshold,
			Algorithm:    algorithm,
			DBSCANMinPts: cfg.DBSCANMinPts,
			BatchSize:    cfg.ResolveBatchSize,
			Workers:      cfg.ParallelThreads,
			MaxAliases:   cfg.MaxAliases,
			Descriptions: cfg.EntityDescriptionSeparator,
		})
		resolver = persist.ResolverFunc(func(ctx context.Context, entities []domain.Entity) ([]domain.Entity, error) {
			result, err := resolveEngine.Resolve(ctx, entities)
			if err != nil {
				return nil, err
			}
			return result.ResolvedEntities, nil
		})
	}

	persister := persist.New(graphStore, entityVec, embedder, resolver, persist.Opts{
		DescriptionSeparator: cfg.EntityDescriptionSeparator,
		DescriptionMaxLength: cfg.EntityDescriptionMaxLength,
	})

	orch := orchestrator.New(chunker, chunkEmbedder, extractor, persister, orchestrator.Opts{KGBatchSize: cfg.KGBatchSize})
	gate := docgate.New(docStatus, time.Duration(cfg.LeaseTTLSeconds)*time.Second)

	return &System{
		Gate: gate, Orch: orch, DocStatus: docStatus, driver: driver,
		chunkVec: chunkVec, entityVec: entityVec, kv: kv, extCache: extCache,
	}, nil
}
