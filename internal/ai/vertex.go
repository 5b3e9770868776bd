package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// vertexAdapter Gemini 适配器
type vertexAdapter struct {
	apiKey string
}

func newVertexAdapter(apiKey string) *vertexAdapter {
	return &vertexAdapter{apiKey: apiKey}
}

// Invoke 单次非流式调用
func (a *vertexAdapter) Invoke(ctx context.Context, req *PromptRequest) (*Result, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	payload := BuildVertexPayload(req)

	gm := client.GenerativeModel(payload.Model)
	temperature := float32(payload.Temperature)
	maxTokens := int32(payload.MaxOutputTokens)
	gm.GenerationConfig = genai.GenerationConfig{
		Temperature:     &temperature,
		MaxOutputTokens: &maxTokens,
	}

	cs := gm.StartChat()
	history := make([]*genai.Content, 0, len(payload.History))
	for _, c := range payload.History {
		parts := make([]genai.Part, 0, len(c.Parts))
		for _, p := range c.Parts {
			parts = append(parts, genai.Text(p.Text))
		}
		history = append(history, &genai.Content{Role: c.Role, Parts: parts})
	}
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(payload.Text))
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("empty candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	result := &Result{GeneratedText: sb.String()}
	if resp.UsageMetadata != nil {
		result.InputUnits = int64(resp.UsageMetadata.PromptTokenCount)
		result.OutputUnits = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}
