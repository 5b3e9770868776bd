package ai

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"pomelo/internal/model"
)

// anthropicAdapter Anthropic 适配器
type anthropicAdapter struct {
	apiKey string
}

func newAnthropicAdapter(apiKey string) *anthropicAdapter {
	return &anthropicAdapter{apiKey: apiKey}
}

// Invoke 单次非流式调用
func (a *anthropicAdapter) Invoke(ctx context.Context, req *PromptRequest) (*Result, error) {
	client := anthropic.NewClient(option.WithAPIKey(a.apiKey))

	payload := BuildAnthropicPayload(req)

	messages := make([]anthropic.MessageParam, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == model.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(payload.Model),
		Messages:    messages,
		Temperature: anthropic.Float(payload.Temperature),
		MaxTokens:   int64(payload.MaxTokens),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, errors.New("empty message content")
	}

	return &Result{
		GeneratedText: resp.Content[0].Text,
		InputUnits:    resp.Usage.InputTokens,
		OutputUnits:   resp.Usage.OutputTokens,
	}, nil
}
