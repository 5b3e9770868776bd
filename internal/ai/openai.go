package ai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

// openAIAdapter OpenAI 兼容适配器，通过 BaseURL 覆盖同时服务
// OPENAI / AIML / TOGETHER 三个渠道
type openAIAdapter struct {
	apiKey  string
	baseURL string
}

func newOpenAIAdapter(apiKey, baseURL string) *openAIAdapter {
	return &openAIAdapter{apiKey: apiKey, baseURL: baseURL}
}

// Invoke 单次非流式调用
func (a *openAIAdapter) Invoke(ctx context.Context, req *PromptRequest) (*Result, error) {
	clientConfig := openai.DefaultConfig(a.apiKey)
	if a.baseURL != "" {
		clientConfig.BaseURL = a.baseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	payload := BuildOpenAIPayload(req)

	messages := make([]openai.ChatCompletionMessage, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:       payload.Model,
		Messages:    messages,
		Temperature: float32(payload.Temperature),
		N:           payload.N,
	}
	if payload.MaxCompletionTokens > 0 {
		openaiReq.MaxCompletionTokens = payload.MaxCompletionTokens
	} else {
		openaiReq.MaxTokens = payload.MaxTokens
	}
	if payload.FrequencyPenalty != nil {
		openaiReq.FrequencyPenalty = float32(*payload.FrequencyPenalty)
	}

	resp, err := client.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion choices")
	}

	return &Result{
		GeneratedText: resp.Choices[0].Message.Content,
		InputUnits:    int64(resp.Usage.PromptTokens),
		OutputUnits:   int64(resp.Usage.CompletionTokens),
	}, nil
}
