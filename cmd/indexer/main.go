// Command indexer wires every capability port to its concrete adapter and
// runs documents through the ingestion + knowledge-graph construction
// pipeline (SPEC_FULL.md §2's DOMAIN STACK table), in the teacher's
// cmd/ingest idiom of a small set of flags plus explicit per-service
// connection setup.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/internal/config"
	"github.com/kgraph/indexer/internal/wiring"
	"github.com/kgraph/indexer/pkg/metrics"
)

var (
	docsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_documents_ingested_total",
		Help: "Documents ingested, by terminal state (completed or failed).",
	}, []string{"state"})
	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "indexer_ingest_duration_seconds",
		Help:    "Per-document ingestion wall time.",
		Buckets: prometheus.DefBuckets,
	})

	// internalRegistry tracks process-local gauges this binary wants to
	// expose without round-tripping through the Prometheus client's
	// registry, served alongside it on a separate path.
	internalRegistry = metrics.New()
	docsInFlight     = internalRegistry.Gauge("indexer_documents_in_flight", "Documents currently being processed by this worker.")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	app := &cli.Command{
		Name:  "indexer",
		Usage: "RAG indexing and knowledge-graph construction engine",
		Commands: []*cli.Command{
			ingestCommand(),
			reclaimCommand(),
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("indexer: fatal", "error", err)
		os.Exit(1)
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "project-id", Required: true, Usage: "project namespace for this ingest run"},
		&cli.StringFlag{Name: "neo4j-uri", Value: "bolt://localhost:7687"},
		&cli.StringFlag{Name: "neo4j-user", Value: "neo4j"},
		&cli.StringFlag{Name: "neo4j-password"},
		&cli.StringFlag{Name: "qdrant-addr", Value: "localhost:6334"},
		&cli.StringFlag{Name: "redis-addr", Value: "localhost:6379"},
		&cli.StringFlag{Name: "llm-provider", Value: "openai"},
		&cli.StringFlag{Name: "llm-model", Value: "gpt-4o-mini"},
		&cli.StringFlag{Name: "embedding-provider", Value: "openai"},
		&cli.StringFlag{Name: "embedding-model", Value: "text-embedding-3-small"},
		&cli.StringFlag{Name: "ollama-url", Value: "http://localhost:11434"},
		&cli.StringFlag{Name: "openai-api-key"},
		&cli.StringFlag{Name: "anthropic-api-key"},
		&cli.IntFlag{Name: "embedding-dims", Value: 1536},
		&cli.IntFlag{Name: "chunk-size", Value: 1200},
		&cli.IntFlag{Name: "chunk-overlap", Value: 100},
		&cli.IntFlag{Name: "kg-batch-size", Value: 20},
		&cli.BoolFlag{Name: "gleaning", Value: true},
		&cli.IntFlag{Name: "max-gleaning-passes", Value: 1},
		&cli.BoolFlag{Name: "enable-cache", Value: true},
		&cli.BoolFlag{Name: "resolver-enabled", Value: true, Usage: "run semantic entity dedup before persistence"},
		&cli.IntFlag{Name: "lease-ttl-seconds", Value: 300},
		&cli.IntFlag{Name: "metrics-port", Value: 9090},
		&cli.StringFlag{Name: "otlp-endpoint", Usage: "OTLP/HTTP collector address for trace export"},
	}
}

// buildConfig constructs a config.Config directly from CLI flag values
// rather than calling config.FromFlags: FromFlags parses os.Args itself
// via its own flag.FlagSet, which would collide with urfave/cli/v3
// already owning argument parsing for this entrypoint.
func buildConfig(cmd *cli.Command) config.Config {
	cfg := config.Default()
	cfg.Neo4jURI = cmd.String("neo4j-uri")
	cfg.Neo4jUser = cmd.String("neo4j-user")
	cfg.Neo4jPassword = cmd.String("neo4j-password")
	cfg.QdrantAddr = cmd.String("qdrant-addr")
	cfg.RedisAddr = cmd.String("redis-addr")
	cfg.LLMProvider = cmd.String("llm-provider")
	cfg.LLMModel = cmd.String("llm-model")
	cfg.EmbeddingProvider = cmd.String("embedding-provider")
	cfg.EmbeddingModel = cmd.String("embedding-model")
	cfg.OllamaURL = cmd.String("ollama-url")
	cfg.OpenAIAPIKey = cmd.String("openai-api-key")
	cfg.AnthropicAPIKey = cmd.String("anthropic-api-key")
	cfg.EmbeddingDims = int(cmd.Int("embedding-dims"))
	cfg.ChunkSize = int(cmd.Int("chunk-size"))
	cfg.ChunkOverlap = int(cmd.Int("chunk-overlap"))
	cfg.KGBatchSize = int(cmd.Int("kg-batch-size"))
	cfg.GleaningEnabled = cmd.Bool("gleaning")
	cfg.MaxGleaningPasses = int(cmd.Int("max-gleaning-passes"))
	cfg.EnableCache = cmd.Bool("enable-cache")
	cfg.ResolverEnabled = cmd.Bool("resolver-enabled")
	cfg.LeaseTTLSeconds = int(cmd.Int("lease-ttl-seconds"))
	cfg.OTLPEndpoint = cmd.String("otlp-endpoint")
	return cfg
}

func ingestCommand() *cli.Command {
	flags := append(configFlags(), &cli.StringSliceFlag{Name: "file", Usage: "file path to ingest (repeatable)"})
	return &cli.Command{
		Name:  "ingest",
		Usage: "ingest one or more documents into the graph and vector stores",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := buildConfig(cmd)

			shutdownTracing, err := wiring.InitTracing(ctx, "kgraph-indexer", cfg.OTLPEndpoint)
			if err != nil {
				return err
			}
			defer shutdownTracing(ctx)

			sys, err := wiring.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer sys.Close(ctx)

			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				mux.Handle("/internal/metrics", internalRegistry.Handler())
				handler := otelhttp.NewHandler(mux, "indexer.metrics")
				_ = http.ListenAndServe(fmt.Sprintf(":%d", cmd.Int("metrics-port")), handler)
			}()

			projectID := cmd.String("project-id")
			for _, path := range cmd.StringSlice("file") {
				if err := ingestFile(ctx, sys, projectID, path); err != nil {
					slog.Error("indexer: ingest failed", "file", path, "error", err)
					docsIngested.WithLabelValues("failed").Inc()
					continue
				}
				docsIngested.WithLabelValues("completed").Inc()
			}
			return nil
		},
	}
}

func ingestFile(ctx context.Context, sys *wiring.System, projectID, path string) error {
	start := time.Now()
	docsInFlight.Inc()
	defer docsInFlight.Dec()
	defer func() { ingestDuration.Observe(time.Since(start).Seconds()) }()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	doc := domain.Document{
		ID:      path,
		Content: string(content),
		Metadata: map[string]string{
			"projectId": projectID,
			"filepath":  path,
		},
	}

	docID, err := sys.Gate.Ingest(ctx, doc, sys.Orch.Process)
	if err != nil {
		return err
	}
	slog.Info("indexer: ingested", "doc_id", docID)
	return nil
}

func reclaimCommand() *cli.Command {
	flags := append(configFlags(), &cli.StringSliceFlag{Name: "doc-id", Required: true, Usage: "document ids to check for an expired lease"},
		&cli.DurationFlag{Name: "older-than", Value: 10 * time.Minute})
	return &cli.Command{
		Name:  "reclaim",
		Usage: "reset documents orphaned by a crashed ingest worker back to FAILED",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := buildConfig(cmd)
			sys, err := wiring.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer sys.Close(ctx)

			reclaimed, err := sys.DocStatus.Reclaim(ctx, cmd.StringSlice("doc-id"), cmd.Duration("older-than"))
			if err != nil {
				return err
			}
			slog.Info("indexer: reclaim complete", "reclaimed", reclaimed)
			return nil
		},
	}
}
