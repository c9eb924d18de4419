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
		Name:  "server",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			got = buildConfig(cmd)
			return nil
		},
	}

	err := cmd.Run(context.Background(), []string{"server",
		"--nats-url", "nats://broker:4222",
		"--nats-subject", "custom.subject",
		"--llm-provider", "anthropic",
		"--embedding-provider", "ollama",
		"--ollama-url", "http://ollama:11434",
	})
	if err != nil {
		t.Fatalf("cmd.Run() error = %v", err)
	}
	if got.NATSURL != "nats://broker:4222" || got.NATSSubject != "custom.subject" {
		t.Fatalf("expected NATS overrides, got %+v", got)
	}
	if got.LLMProvider != "anthropic" {
		t.Fatalf("expected llm-provider override, got %q", got.LLMProvider)
	}
	if got.EmbeddingProvider != "ollama" || got.OllamaURL != "http://ollama:11434" {
		t.Fatalf("expected ollama embedding overrides, got %+v", got)
	}
}

func TestBuildConfig_DefaultsFlowThroughWhenUnset(t *testing.T) {
	var got config.Config
	cmd := &cli.Command{
		Name:  "server",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			got = buildConfig(cmd)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), []string{"server"}); err != nil {
		t.Fatalf("cmd.Run() error = %v", err)
	}
	if got.NATSSubject != "indexer.documents" {
		t.Fatalf("expected default NATS subject, got %q", got.NATSSubject)
	}
	if got.LLMProvider != "openai" || got.EmbeddingProvider != "openai" {
		t.Fatalf("expected default providers, got %+v", got)
	}
}
