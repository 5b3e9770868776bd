package model

// 请求体统一包在 data 信封下

// SendChatRequest 发送消息请求（新会话或续聊）
type SendChatRequest struct {
	ChatID   string `json:"chat_id,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Text     string `json:"text"`
}

// SendChatEnvelope data 信封
type SendChatEnvelope struct {
	Data SendChatRequest `json:"data" binding:"required"`
}

// EditPromptRequest 编辑最近一轮提问
type EditPromptRequest struct {
	ChatID         string `json:"chat_id"`
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

// EditPromptEnvelope data 信封
type EditPromptEnvelope struct {
	Data EditPromptRequest `json:"data" binding:"required"`
}

// RegenerateRequest 重新生成最近一轮回答
type RegenerateRequest struct {
	ChatID         string `json:"chat_id"`
	ConversationID string `json:"conversation_id"`
}

// RegenerateEnvelope data 信封
type RegenerateEnvelope struct {
	Data RegenerateRequest `json:"data" binding:"required"`
}

// EditTitleRequest 修改会话标题
type EditTitleRequest struct {
	ChatID string `json:"chat_id"`
	Title  string `json:"title"`
}

// EditTitleEnvelope data 信封
type EditTitleEnvelope struct {
	Data EditTitleRequest `json:"data" binding:"required"`
}

// DeleteChatRequest 删除会话（软删除）
type DeleteChatRequest struct {
	ChatID string `json:"chat_id"`
}

// DeleteChatEnvelope data 信封
type DeleteChatEnvelope struct {
	Data DeleteChatRequest `json:"data" binding:"required"`
}
