package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"pomelo/internal/pkg/cache"
)

// ProviderID 提供商标识（封闭集合）
type ProviderID string

const (
	ProviderOpenAI    ProviderID = "OPENAI"
	ProviderAnthropic ProviderID = "ANTHROPIC"
	ProviderAIML      ProviderID = "AIML"
	ProviderTogether  ProviderID = "TOGETHER"
	ProviderVertex    ProviderID = "VERTEX"
)

// ChatConfig 提供商目录与全局调用参数
// 字段名与密钥文件中的 CHAT_CONFIG 保持一致
type ChatConfig struct {
	Temperature float64    `json:"TEMPERATURE"`
	MaxTokens   int        `json:"MAX_TOKENS"`
	CostFactor  float64    `json:"COST_FACTOR"`
	Providers   []Provider `json:"PROVIDERS"`
}

// Provider 提供商条目
type Provider struct {
	Name   string     `json:"NAME"`
	Icon   string     `json:"ICON"`
	ID     ProviderID `json:"ID"`
	Key    string     `json:"KEY"`
	URL    string     `json:"URL"`
	Models []Model    `json:"MODELS"`
}

// Model 模型条目，MIN_CREDITS 为调用该模型的余额门槛
type Model struct {
	Name       string          `json:"NAME"`
	Model      string          `json:"MODEL"`
	MinCredits decimal.Decimal `json:"MIN_CREDITS"`
}

// Model 按模型名查找条目
func (p *Provider) Model(model string) (*Model, bool) {
	for i := range p.Models {
		if p.Models[i].Model == model {
			return &p.Models[i], true
		}
	}
	return nil, false
}

// KeyRef 返回截断后的密钥引用，仅用于日志
func (p *Provider) KeyRef() string {
	if len(p.Key) <= 8 {
		return "****"
	}
	return p.Key[:4] + "..." + p.Key[len(p.Key)-4:]
}

// Provider 按 ID 查找提供商
func (c *ChatConfig) Provider(id string) (*Provider, bool) {
	for i := range c.Providers {
		if string(c.Providers[i].ID) == id {
			return &c.Providers[i], true
		}
	}
	return nil, false
}

// IsModelAllowed 检查 (provider, model) 是否在目录中
func (c *ChatConfig) IsModelAllowed(provider, model string) bool {
	p, ok := c.Provider(provider)
	if !ok {
		return false
	}
	_, ok = p.Model(model)
	return ok
}

// normalize 填充缺省值
func (c *ChatConfig) normalize() {
	if c.CostFactor <= 0 {
		c.CostFactor = 1000
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
}

// Store CHAT_CONFIG 来源：密钥文件 + 可选的 redis TTL 缓存
// 不设缓存时退化为每请求直读文件
type Store struct {
	file  string
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewStore 创建密钥存储
func NewStore(file string, rc *cache.RedisCache, ttl time.Duration) *Store {
	return &Store{file: file, cache: rc, ttl: ttl}
}

// ChatConfig 读取 CHAT_CONFIG，优先走缓存
func (s *Store) ChatConfig(ctx context.Context) (*ChatConfig, error) {
	if s.cache != nil {
		var cached ChatConfig
		if err := s.cache.Get(ctx, cache.ChatConfigCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	cfg, err := s.load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.ChatConfigCacheKey, cfg, s.ttl); err != nil {
			// 缓存写入失败不影响本次请求
			log.Warn().Err(err).Msg("failed to cache chat config")
		}
	}

	return cfg, nil
}

// load 从密钥文件读取并解析
func (s *Store) load() (*ChatConfig, error) {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	// 密钥文件顶层为 {"CHAT_CONFIG": {...}}
	var wrapper struct {
		ChatConfig ChatConfig `json:"CHAT_CONFIG"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse secrets file: %w", err)
	}

	cfg := wrapper.ChatConfig
	cfg.normalize()
	return &cfg, nil
}
