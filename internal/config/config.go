// Package config defines the indexer's runtime configuration: flags, env
// overrides, and the startup validation that turns malformed values into
// errs.ConfigurationError before any component is constructed.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/kgraph/indexer/internal/errs"
)

// SimilarityWeights holds the four weighted components of entity
// similarity scoring (SPEC_FULL.md §4.6.2). Must sum to 1.0.
type SimilarityWeights struct {
	Jaccard      float64
	Containment  float64
	Levenshtein  float64
	Abbreviation float64
}

// Config is the fully resolved set of tunables for one indexer process.
type Config struct {
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	QdrantAddr       string
	QdrantChunkColl  string
	QdrantEntityColl string
	EmbeddingDims    int

	RedisAddr string
	RedisDB   int

	LLMProvider     string // "openai" | "anthropic"
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	EmbeddingProvider string // "openai" | "ollama"
	EmbeddingModel    string
	OllamaURL         string

	ChunkSize    int
	ChunkOverlap int

	EmbedBatchSize int
	KGBatchSize    int

	EntityTypes                 []string
	Language                    string
	EntityDescriptionMaxLength  int
	EntityDescriptionSeparator  string
	EntityNameMaxLength         int
	MaxSourceChunkIDsPerRecord  int
	EnableCache                 bool

	GleaningEnabled   bool
	MaxGleaningPasses int // 0..5

	ResolverEnabled     bool
	SimilarityThreshold float64
	SimilarityWeights   SimilarityWeights
	ClusterAlgorithm    string // "threshold" | "dbscan"
	DBSCANMinPts        int
	ResolveBatchSize    int
	ParallelEnabled     bool
	ParallelThreads     int
	MaxAliases          int

	MaxSourceChunkIDs int

	LeaseTTLSeconds int

	NATSURL     string
	NATSSubject string

	// OTLPEndpoint is the OTLP/HTTP collector address spans are exported
	// to. Empty disables exporting (tracing stays a local no-op).
	OTLPEndpoint string

	Env string // "production" | "development" | "test"
}

// Default returns a Config populated with SPEC_FULL.md's documented
// defaults, before flag/env overrides are applied.
func Default() Config {
	return Config{
		Neo4jURI:  "bolt://localhost:7687",
		Neo4jUser: "neo4j",

		QdrantAddr:       "localhost:6334",
		QdrantChunkColl:  "chunks",
		QdrantEntityColl: "entities",
		EmbeddingDims:    1536,

		RedisAddr: "localhost:6379",

		LLMProvider: "openai",
		LLMModel:    "gpt-4o-mini",

		EmbeddingProvider: "openai",
		EmbeddingModel:    "text-embedding-3-small",
		OllamaURL:         "http://localhost:11434",

		ChunkSize:    1200,
		ChunkOverlap: 100,

		EmbedBatchSize: 32,
		KGBatchSize:    20,

		EntityTypes:                []string{"PERSON", "ORGANIZATION", "LOCATION", "EVENT", "CONCEPT"},
		Language:                    "English",
		EntityDescriptionMaxLength:  1000,
		EntityDescriptionSeparator:  " | ",
		EntityNameMaxLength:         500,
		MaxSourceChunkIDsPerRecord:  50,
		EnableCache:                 true,

		GleaningEnabled:   true,
		MaxGleaningPasses: 1,

		ResolverEnabled:     true,
		SimilarityThreshold: 0.75,
		SimilarityWeights: SimilarityWeights{
			Jaccard:      0.35,
			Containment:  0.25,
			Levenshtein:  0.30,
			Abbreviation: 0.10,
		},
		ClusterAlgorithm: "threshold",
		DBSCANMinPts:     1,
		ResolveBatchSize: 200,
		ParallelEnabled:  true,
		ParallelThreads:  4,
		MaxAliases:       5,

		MaxSourceChunkIDs: 50,
		LeaseTTLSeconds:   300,

		NATSSubject: "indexer.documents",

		Env: "production",
	}
}

// FromFlags builds a Config by starting from Default, applying
// environment-variable overrides, then flag overrides (flags win), and
// finally validating the result.
func FromFlags(args []string) (Config, error) {
	cfg := Default()
	applyEnv(&cfg)

	fs := flag.NewFlagSet("indexer", flag.ContinueOnError)
	fs.StringVar(&cfg.Neo4jURI, "neo4j-uri", cfg.Neo4jURI, "Neo4j bolt URI")
	fs.StringVar(&cfg.Neo4jUser, "neo4j-user", cfg.Neo4jUser, "Neo4j username")
	fs.StringVar(&cfg.Neo4jPassword, "neo4j-password", cfg.Neo4jPassword, "Neo4j password")
	fs.StringVar(&cfg.QdrantAddr, "qdrant-addr", cfg.QdrantAddr, "Qdrant gRPC address")
	fs.IntVar(&cfg.EmbeddingDims, "embedding-dims", cfg.EmbeddingDims, "embedding vector dimensionality")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	fs.StringVar(&cfg.LLMProvider, "llm-provider", cfg.LLMProvider, "openai or anthropic")
	fs.StringVar(&cfg.LLMModel, "llm-model", cfg.LLMModel, "LLM model name")
	fs.StringVar(&cfg.OpenAIAPIKey, "openai-api-key", cfg.OpenAIAPIKey, "OpenAI API key")
	fs.StringVar(&cfg.AnthropicAPIKey, "anthropic-api-key", cfg.AnthropicAPIKey, "Anthropic API key")
	fs.StringVar(&cfg.EmbeddingProvider, "embedding-provider", cfg.EmbeddingProvider, "openai or ollama")
	fs.StringVar(&cfg.EmbeddingModel, "embedding-model", cfg.EmbeddingModel, "embedding model name")
	fs.StringVar(&cfg.OllamaURL, "ollama-url", cfg.OllamaURL, "Ollama base URL, used when embedding-provider=ollama")
	fs.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "tokens per chunk")
	fs.IntVar(&cfg.ChunkOverlap, "chunk-overlap", cfg.ChunkOverlap, "overlap tokens between chunks")
	fs.IntVar(&cfg.EmbedBatchSize, "embed-batch-size", cfg.EmbedBatchSize, "embedding batch size")
	fs.IntVar(&cfg.KGBatchSize, "kg-batch-size", cfg.KGBatchSize, "extraction batch size")
	fs.IntVar(&cfg.MaxGleaningPasses, "max-gleaning-passes", cfg.MaxGleaningPasses, "max gleaning passes")
	fs.BoolVar(&cfg.ResolverEnabled, "resolver-enabled", cfg.ResolverEnabled, "enable semantic entity dedup before persistence")
	fs.Float64Var(&cfg.SimilarityThreshold, "similarity-threshold", cfg.SimilarityThreshold, "entity merge threshold")
	fs.StringVar(&cfg.ClusterAlgorithm, "cluster-algorithm", cfg.ClusterAlgorithm, "threshold or dbscan")
	fs.IntVar(&cfg.DBSCANMinPts, "dbscan-min-pts", cfg.DBSCANMinPts, "DBSCAN minPts")
	fs.IntVar(&cfg.MaxSourceChunkIDs, "max-source-chunk-ids", cfg.MaxSourceChunkIDs, "bounded source chunk id set capacity (validated only; the resolver always uses domain.DefaultMaxSourceChunkIDs)")
	fs.IntVar(&cfg.LeaseTTLSeconds, "lease-ttl-seconds", cfg.LeaseTTLSeconds, "processing lease TTL")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL")
	fs.StringVar(&cfg.NATSSubject, "nats-subject", cfg.NATSSubject, "NATS ingestion subject")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP/HTTP collector address for trace export; empty disables export")
	fs.StringVar(&cfg.Env, "env", cfg.Env, "production, development, or test")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	str("INDEXER_NEO4J_URI", &cfg.Neo4jURI)
	str("INDEXER_NEO4J_USER", &cfg.Neo4jUser)
	str("INDEXER_NEO4J_PASSWORD", &cfg.Neo4jPassword)
	str("INDEXER_QDRANT_ADDR", &cfg.QdrantAddr)
	str("INDEXER_REDIS_ADDR", &cfg.RedisAddr)
	str("INDEXER_LLM_PROVIDER", &cfg.LLMProvider)
	str("INDEXER_LLM_MODEL", &cfg.LLMModel)
	str("OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	str("ANTHROPIC_API_KEY", &cfg.AnthropicAPIKey)
	str("INDEXER_NATS_URL", &cfg.NATSURL)
	str("INDEXER_ENV", &cfg.Env)
	num("INDEXER_CHUNK_SIZE", &cfg.ChunkSize)
	num("INDEXER_CHUNK_OVERLAP", &cfg.ChunkOverlap)
	num("INDEXER_KG_BATCH_SIZE", &cfg.KGBatchSize)
}

// Validate enforces the numeric invariants SPEC_FULL.md requires of
// configuration: weights summing to 1, thresholds in range, non-negative
// sizes. Any violation is a fatal errs.ConfigurationError.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errs.NewConfigurationError("chunk-size", fmt.Errorf("must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return errs.NewConfigurationError("chunk-overlap", fmt.Errorf("must be in [0, chunk-size), got %d", c.ChunkOverlap))
	}
	if c.EmbedBatchSize <= 0 {
		return errs.NewConfigurationError("embed-batch-size", fmt.Errorf("must be positive, got %d", c.EmbedBatchSize))
	}
	if c.KGBatchSize <= 0 {
		return errs.NewConfigurationError("kg-batch-size", fmt.Errorf("must be positive, got %d", c.KGBatchSize))
	}
	if c.MaxGleaningPasses < 0 || c.MaxGleaningPasses > 5 {
		return errs.NewConfigurationError("max-gleaning-passes", fmt.Errorf("must be in [0,5], got %d", c.MaxGleaningPasses))
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return errs.NewConfigurationError("similarity-threshold", fmt.Errorf("must be in [0,1], got %f", c.SimilarityThreshold))
	}
	w := c.SimilarityWeights
	sum := w.Jaccard + w.Containment + w.Levenshtein + w.Abbreviation
	if sum < 0.999 || sum > 1.001 {
		return errs.NewConfigurationError("similarity-weights", fmt.Errorf("must sum to 1.0, got %f", sum))
	}
	if c.ClusterAlgorithm != "threshold" && c.ClusterAlgorithm != "dbscan" {
		return errs.NewConfigurationError("cluster-algorithm", fmt.Errorf("must be threshold or dbscan, got %q", c.ClusterAlgorithm))
	}
	if c.DBSCANMinPts < 1 {
		return errs.NewConfigurationError("dbscan-min-pts", fmt.Errorf("must be >= 1, got %d", c.DBSCANMinPts))
	}
	if c.MaxSourceChunkIDs <= 0 {
		return errs.NewConfigurationError("max-source-chunk-ids", fmt.Errorf("must be positive, got %d", c.MaxSourceChunkIDs))
	}
	if c.LeaseTTLSeconds <= 0 {
		return errs.NewConfigurationError("lease-ttl-seconds", fmt.Errorf("must be positive, got %d", c.LeaseTTLSeconds))
	}
	if c.LLMProvider != "openai" && c.LLMProvider != "anthropic" {
		return errs.NewConfigurationError("llm-provider", fmt.Errorf("must be openai or anthropic, got %q", c.LLMProvider))
	}
	if c.EmbeddingProvider != "openai" && c.EmbeddingProvider != "ollama" {
		return errs.NewConfigurationError("embedding-provider", fmt.Errorf("must be openai or ollama, got %q", c.EmbeddingProvider))
	}
	return nil
}
