package ai

import (
	"pomelo/internal/model"
)

// PromptRequest 一次上游调用的归一化输入
type PromptRequest struct {
	Model       string
	Text        string
	History     []model.HistoryTurn
	Temperature float64
	MaxTokens   int
	Regenerate  bool
}

// ChatMessage OpenAI 风格的消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIPayload OpenAI 兼容请求体
// MaxTokens / MaxCompletionTokens 互斥，按模型决定用哪个字段名
// FrequencyPenalty 用指针区分「值为 0」和「字段缺席」
type OpenAIPayload struct {
	Model               string
	Messages            []ChatMessage
	Temperature         float64
	MaxTokens           int
	MaxCompletionTokens int
	FrequencyPenalty    *float64
	N                   int
}

// AnthropicPayload Anthropic 请求体
type AnthropicPayload struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

// VertexPart 内容片段
type VertexPart struct {
	Text string
}

// VertexContent 历史条目，assistant 角色换名为 model
type VertexContent struct {
	Role  string
	Parts []VertexPart
}

// VertexPayload Vertex 请求体
// 新的用户输入不进历史，随消息单独发送
type VertexPayload struct {
	Model           string
	History         []VertexContent
	Text            string
	Temperature     float64
	MaxOutputTokens int
}

// completionTokenModels 需要 max_completion_tokens 字段名的模型
var completionTokenModels = map[string]bool{
	"o1-mini":     true,
	"o1-preview":  true,
	"gpt-4o-mini": true,
	"gpt-4o":      true,
}

// noPenaltyModels 不接受 frequency_penalty 字段的模型
var noPenaltyModels = map[string]bool{
	"gemini-1.5-flash": true,
	"gpt-4o-mini":      true,
	"o1-mini":          true,
	"o1-preview":       true,
}

// fixedTemperatureModels 只接受 temperature=1 的模型
var fixedTemperatureModels = map[string]bool{
	"o1-mini":    true,
	"o1-preview": true,
}

// buildMessages 历史在前，新的用户输入收尾
func buildMessages(req *PromptRequest) []ChatMessage {
	messages := make([]ChatMessage, 0, len(req.History)+1)
	for _, turn := range req.History {
		messages = append(messages, ChatMessage{Role: turn.Role, Content: turn.Message})
	}
	messages = append(messages, ChatMessage{Role: model.RoleUser, Content: req.Text})
	return messages
}

// BuildOpenAIPayload 构造 OpenAI 兼容请求体
// 字段名映射是 (模型) 的确定性函数：
//   - o1/4o 系列用 max_completion_tokens，其余用 max_tokens
//   - frequency_penalty 对排除表外的模型始终出现（重新生成时为 2，否则为 0）
//   - o1 系列温度强制为 1
func BuildOpenAIPayload(req *PromptRequest) *OpenAIPayload {
	p := &OpenAIPayload{
		Model:       req.Model,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
		N:           1,
	}

	if fixedTemperatureModels[req.Model] {
		p.Temperature = 1
	}

	if completionTokenModels[req.Model] {
		p.MaxCompletionTokens = req.MaxTokens
	} else {
		p.MaxTokens = req.MaxTokens
	}

	if !noPenaltyModels[req.Model] {
		penalty := float64(0)
		if req.Regenerate {
			penalty = 2
		}
		p.FrequencyPenalty = &penalty
	}

	return p
}

// BuildAnthropicPayload 构造 Anthropic 请求体
func BuildAnthropicPayload(req *PromptRequest) *AnthropicPayload {
	return &AnthropicPayload{
		Model:       req.Model,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

// BuildVertexPayload 构造 Vertex 请求体
// 历史中 assistant 角色换名为 model，新的用户输入单独携带
func BuildVertexPayload(req *PromptRequest) *VertexPayload {
	history := make([]VertexContent, 0, len(req.History))
	for _, turn := range req.History {
		role := turn.Role
		if role == model.RoleAssistant {
			role = "model"
		}
		history = append(history, VertexContent{
			Role:  role,
			Parts: []VertexPart{{Text: turn.Message}},
		})
	}

	return &VertexPayload{
		Model:           req.Model,
		History:         history,
		Text:            req.Text,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
}
