package llmclient

import (
	"context"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultMaxTokens int64 = 4096

// AnthropicChat implements LLM against the Anthropic Messages API.
type AnthropicChat struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicChat creates an LLM backed by Anthropic messages.
func NewAnthropicChat(apiKey, model string) *AnthropicChat {
	return &AnthropicChat{
		sdk:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: anthropicDefaultMaxTokens,
	}
}

func (c *AnthropicChat) Call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llmclient: anthropic messages: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("llmclient: anthropic messages: no text block in response")
}
