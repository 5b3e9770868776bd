package model

import "time"

// 响应统一包在 result 信封下，由 handler 负责包装

// SendChatResult 发送消息响应
type SendChatResult struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	ChatID          string  `json:"chat_id"`
	ConversationID  string  `json:"conversation_id"`
	GeneratedText   string  `json:"generated_text"`
	CreditsUtilised float64 `json:"credits_utilised"`
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	Title           string  `json:"title,omitempty"`
}

// EditPromptResult 编辑提问响应
type EditPromptResult struct {
	Success              bool    `json:"success"`
	Message              string  `json:"message"`
	ChatID               string  `json:"chat_id"`
	NewConversationID    string  `json:"new_conversation_id"`
	EditedConversationID string  `json:"edited_conversation_id"`
	GeneratedText        string  `json:"generated_text"`
	CreditsUtilised      float64 `json:"credits_utilised"`
}

// RegenerateResult 重新生成响应
type RegenerateResult struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	ChatID          string  `json:"chat_id"`
	ConversationID  string  `json:"conversation_id"`
	GeneratedText   string  `json:"generated_text"`
	CreditsUtilised float64 `json:"credits_utilised"`
}

// EditTitleResult 修改标题响应
type EditTitleResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
	Title   string `json:"title"`
}

// DeleteChatResult 删除会话响应
type DeleteChatResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
}

// ChatSummary 会话概要（overview 列表项）
type ChatSummary struct {
	ChatID    string    `json:"chat_id"`
	Title     string    `json:"title"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatHistoryBuckets 按时间分桶的会话列表
type ChatHistoryBuckets struct {
	TodayChats       []ChatSummary `json:"today_chats"`
	PreviousDayChats []ChatSummary `json:"previous_day_chats"`
	OtherChats       []ChatSummary `json:"other_chats"`
}

// ModelOverview 对外暴露的模型信息
type ModelOverview struct {
	Name       string  `json:"name"`
	Model      string  `json:"model"`
	MinCredits float64 `json:"min_credits"`
}

// ProviderOverview 对外暴露的提供商信息（不含密钥）
type ProviderOverview struct {
	Name   string          `json:"name"`
	Icon   string          `json:"icon"`
	ID     string          `json:"id"`
	Models []ModelOverview `json:"models"`
}

// OverviewResult 概览页响应
type OverviewResult struct {
	ChatHistory ChatHistoryBuckets `json:"chat_history"`
	UserCredits float64            `json:"user_credits"`
	Providers   []ProviderOverview `json:"providers"`
}

// GetChatResult 会话分页响应
type GetChatResult struct {
	PreviousHistory []ConversationRound `json:"previous_history"`
	NextTimestamp   *time.Time          `json:"next_timestamp,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
