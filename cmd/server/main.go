// Command server runs a NATS subscriber that triggers document ingestion
// asynchronously, with retry and dead-letter handling grounded in the
// teacher's engine/ingest.StartConsumer (SPEC_FULL.md §2).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kgraph/indexer/engine/domain"
	"github.com/kgraph/indexer/internal/config"
	"github.com/kgraph/indexer/internal/wiring"
	"github.com/kgraph/indexer/pkg/natsutil"
)

const (
	// maxRetries before a document is routed to the dead-letter subject,
	// matching the teacher's engine/ingest.MaxRetries.
	maxRetries       = 3
	retryCountHeader = "X-Retry-Count"
)

// ingestMessage is the wire shape published onto the ingestion subject: a
// reference to document content plus the project it belongs to, not the
// raw document bytes (the teacher's dlqMessage carries the full post; this
// spec expects documents to already live on shared storage by doc id).
type ingestMessage struct {
	DocID     string `json:"doc_id"`
	ProjectID string `json:"project_id"`
	FilePath  string `json:"file_path"`
}

type dlqMessage struct {
	Message ingestMessage `json:"message"`
	Error   string        `json:"error"`
	Retries int           `json:"retries"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	app := &cli.Command{
		Name:  "server",
		Usage: "asynchronous document ingestion consumer",
		Flags: append(configFlags(),
			&cli.IntFlag{Name: "metrics-port", Value: 9091},
			&cli.StringFlag{Name: "otlp-endpoint", Usage: "OTLP/HTTP collector address for trace export"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd)
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("server: fatal", "error", err)
		os.Exit(1)
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "nats-url", Value: nats.DefaultURL},
		&cli.StringFlag{Name: "nats-subject", Value: "indexer.documents"},
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
		&cli.BoolFlag{Name: "resolver-enabled", Value: true, Usage: "run semantic entity dedup before persistence"},
	}
}

// buildConfig constructs a config.Config directly from CLI flag values,
// the same double-os.Args-parsing avoidance cmd/indexer uses.
func buildConfig(cmd *cli.Command) config.Config {
	cfg := config.Default()
	cfg.NATSURL = cmd.String("nats-url")
	cfg.NATSSubject = cmd.String("nats-subject")
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
	cfg.ResolverEnabled = cmd.Bool("resolver-enabled")
	cfg.OTLPEndpoint = cmd.String("otlp-endpoint")
	return cfg
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := buildConfig(cmd)

	shutdownTracing, err := wiring.InitTracing(ctx, "kgraph-server", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(ctx)

	sys, err := wiring.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("server: nats connect: %w", err)
	}
	defer nc.Close()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		handler := otelhttp.NewHandler(mux, "server.metrics")
		_ = http.ListenAndServe(fmt.Sprintf(":%d", cmd.Int("metrics-port")), handler)
	}()

	sub, err := startConsumer(nc, cfg.NATSSubject, sys)
	if err != nil {
		return fmt.Errorf("server: start consumer: %w", err)
	}
	defer sub.Unsubscribe()

	slog.Info("server: listening", "subject", cfg.NATSSubject)
	<-ctx.Done()
	slog.Info("server: shutting down")
	return nil
}

// startConsumer subscribes to subject and runs every message through the
// gate, retrying on failure up to maxRetries before routing to the
// dead-letter subject. Grounded directly on the teacher's
// engine/ingest.StartConsumer: unmarshal, run the pipeline, inspect the
// X-Retry-Count header, republish-or-DLQ, ack if JetStream.
func startConsumer(nc *nats.Conn, subject string, sys *wiring.System) (*nats.Subscription, error) {
	dlqSubject := subject + ".dlq"

	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var m ingestMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			slog.Error("server: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()
		content, err := os.ReadFile(m.FilePath)
		if err != nil {
			slog.Error("server: read file failed", "file", m.FilePath, "error", err)
			return
		}

		doc := domain.Document{
			ID:      m.DocID,
			Content: string(content),
			Metadata: map[string]string{
				"projectId": m.ProjectID,
				"filepath":  m.FilePath,
			},
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get(retryCountHeader); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		_, ingestErr := sys.Gate.Ingest(ctx, doc, sys.Orch.Process)
		if ingestErr != nil {
			retries++
			slog.Error("server: ingest failed", "doc_id", m.DocID, "retry", retries, "error", ingestErr)

			if retries >= maxRetries {
				publishToDLQ(ctx, nc, dlqSubject, m, ingestErr, retries)
			} else {
				republish(nc, subject, msg.Data, retries)
			}
		} else {
			slog.Info("server: ingested", "doc_id", m.DocID)
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}

// publishToDLQ routes a message that exhausted its retries onto the
// dead-letter subject. It never waits on a reply, so it uses
// natsutil.Publish, which also injects the current trace context into the
// message headers for cross-service span correlation.
func publishToDLQ(ctx context.Context, nc *nats.Conn, dlqSubject string, m ingestMessage, cause error, retries int) {
	dlq := dlqMessage{Message: m, Error: cause.Error(), Retries: retries}
	if err := natsutil.Publish(ctx, nc, dlqSubject, dlq); err != nil {
		slog.Error("server: DLQ publish failed", "error", err)
	}
}

// republish carries the X-Retry-Count header startConsumer reads back on
// redelivery, a shape natsutil.Publish doesn't expose, so it stays on the
// raw nats.Msg API.
func republish(nc *nats.Conn, subject string, data []byte, retries int) {
	retryMsg := nats.NewMsg(subject)
	retryMsg.Data = data
	retryMsg.Header = nats.Header{}
	retryMsg.Header.Set(retryCountHeader, fmt.Sprintf("%d", retries))
	if err := nc.PublishMsg(retryMsg); err != nil {
		slog.Error("server: retry publish failed", "error", err)
	}
}
