package main

import (
	"context"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/kgraph/indexer/internal/config"
)

func TestBuildConfig_MapsFlagsIntoConfig(t *testing.T) {
	var got config.Config
	cmd := &cli.Command{
		Name:  "ingest",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			got = buildConfig(cmd)
			return nil
		},
	}

	err := cmd.Run(context.Background(), []string{"ingest",
		"--project-id", "proj1",
		"--neo4j-uri", "bolt://db:7687",
		"--chunk-size", "800",
		"--chunk-overlap", "50",
		"--kg-batch-size", "10",
		"--gleaning=false",
		"--enable-cache=false",
		"--embedding-provider", "ollama",
		"--ollama-url", "http://ollama:11434",
	})
	if err != nil {
		t.Fatalf("cmd.Run() error = %v", err)
	}
	if got.Neo4jURI != "bolt://db:7687" {
		t.Fatalf("expected neo4j-uri override, got %q", got.Neo4jURI)
	}
	if got.ChunkSize != 800 || got.ChunkOverlap != 50 {
		t.Fatalf("expected chunk size/overlap overrides, got %+v", got)
	}
	if got.KGBatchSize != 10 {
		t.Fatalf("expected kg-batch-size override, got %d", got.KGBatchSize)
	}
	if got.GleaningEnabled {
		t.Fatal("expected gleaning disabled")
	}
	if got.EnableCache {
		t.Fatal("expected cache disabled")
	}
	if got.EmbeddingProvider != "ollama" || got.OllamaURL != "http://ollama:11434" {
		t.Fatalf("expected ollama embedding overrides, got %+v", got)
	}
}

func TestBuildConfig_DefaultsFlowThroughWhenUnset(t *testing.T) {
	var got config.Config
	cmd := &cli.Command{
		Name:  "ingest",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			got = buildConfig(cmd)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), []string{"ingest", "--project-id", "proj1"}); err != nil {
		t.Fatalf("cmd.Run() error = %v", err)
	}
	if got.ChunkSize != 1200 || got.ChunkOverlap != 100 {
		t.Fatalf("expected chunker defaults, got %+v", got)
	}
	if got.KGBatchSize != 20 {
		t.Fatalf("expected KGBatchSize default of 20, got %d", got.KGBatchSize)
	}
	if !got.GleaningEnabled || !got.EnableCache {
		t.Fatalf("expected gleaning/cache enabled by default, got %+v", got)
	}
	if got.EmbeddingProvider != "openai" {
		t.Fatalf("expected default embedding provider openai, got %q", got.EmbeddingProvider)
	}
}
