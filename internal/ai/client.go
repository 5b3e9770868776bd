package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pomelo/internal/pkg/apperr"
	"pomelo/internal/secrets"
)

// Result 上游调用的归一化结果
type Result struct {
	GeneratedText string
	InputUnits    int64
	OutputUnits   int64
}

// Adapter 单个提供商的调用接口
type Adapter interface {
	Invoke(ctx context.Context, req *PromptRequest) (*Result, error)
}

// Client 提供商分发器
// 每个请求恰好命中一个适配器，不做重试和降级
type Client struct{}

// NewClient 创建分发器
func NewClient() *Client {
	return &Client{}
}

// adapterFor 按提供商 ID 选择适配器（封闭集合）
func (c *Client) adapterFor(provider *secrets.Provider) (Adapter, error) {
	switch provider.ID {
	case secrets.ProviderOpenAI:
		return newOpenAIAdapter(provider.Key, ""), nil
	case secrets.ProviderAIML, secrets.ProviderTogether:
		return newOpenAIAdapter(provider.Key, provider.URL), nil
	case secrets.ProviderAnthropic:
		return newAnthropicAdapter(provider.Key), nil
	case secrets.ProviderVertex:
		return newVertexAdapter(provider.Key), nil
	default:
		return nil, fmt.Errorf("unknown provider id: %s", provider.ID)
	}
}

// Invoke 调用指定提供商，失败统一转为上游错误
func (c *Client) Invoke(ctx context.Context, provider *secrets.Provider, req *PromptRequest) (*Result, error) {
	adapter, err := c.adapterFor(provider)
	if err != nil {
		return nil, apperr.UpstreamRequestFailed(err)
	}

	result, err := adapter.Invoke(ctx, req)
	if err != nil {
		log.Error().
			Err(err).
			Str("provider", string(provider.ID)).
			Str("model", req.Model).
			Str("key_ref", provider.KeyRef()).
			Msg("upstream request failed")
		return nil, apperr.UpstreamRequestFailed(err)
	}

	return result, nil
}
