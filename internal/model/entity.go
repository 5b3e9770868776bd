package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryTurn 历史对话中的一条消息（chats.previous_conversation 的元素）
type HistoryTurn struct {
	Role    string `bson:"role" json:"role"`
	Message string `bson:"message" json:"message"`
}

// Chat 会话实体
// previous_conversation 保存至今为止的完整上下文快照，每轮写入后追加
// 金额字段使用 Decimal128，避免浮点漂移
type Chat struct {
	ID                   primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	ChatID               string               `bson:"chat_id" json:"chat_id"`
	UserID               string               `bson:"user_id" json:"user_id"`
	Title                string               `bson:"title" json:"title"`
	Provider             string               `bson:"provider" json:"provider"`
	Model                string               `bson:"model" json:"model"`
	TotalTokens          int64                `bson:"total_tokens" json:"total_tokens"`
	TotalCredits         primitive.Decimal128 `bson:"total_credits" json:"total_credits"`
	TotalCost            primitive.Decimal128 `bson:"total_cost" json:"total_cost"`
	PreviousConversation []HistoryTurn        `bson:"previous_conversation" json:"previous_conversation"`
	IsDeleted            bool                 `bson:"is_deleted" json:"-"`
	CreatedAt            time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time            `bson:"updated_at" json:"updated_at"`
}

// Conversation 一轮对话（一次提问+一次回答）
// EditedConversationID 指向被编辑的那一轮（仅 EDIT 分支写入）
type Conversation struct {
	ID                   primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	ConversationID       string               `bson:"conversation_id" json:"conversation_id"`
	ChatID               string               `bson:"chat_id" json:"chat_id"`
	EditedConversationID string               `bson:"edited_conversation_id,omitempty" json:"edited_conversation_id,omitempty"`
	CreditsUsed          primitive.Decimal128 `bson:"credits_used" json:"credits_used"`
	AICost               primitive.Decimal128 `bson:"ai_cost" json:"ai_cost"`
	TokensConsumed       int64                `bson:"tokens_consumed" json:"tokens_consumed"`
	CreatedAt            time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time            `bson:"updated_at" json:"updated_at"`
}

// Message 消息实体，chat_id 冗余以支持按会话分页
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	MessageID      string             `bson:"message_id" json:"message_id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	ChatID         string             `bson:"chat_id" json:"chat_id"`
	SenderRole     string             `bson:"sender_role" json:"sender_role"`
	Message        string             `bson:"message" json:"message"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// UserCredits 用户积分账户
type UserCredits struct {
	ID      primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	UserID  string               `bson:"user_id" json:"user_id"`
	Credits primitive.Decimal128 `bson:"credits" json:"credits"`
}

// ConversationRound 会话分页返回的一轮对话及其消息
type ConversationRound struct {
	ConversationID string        `json:"conversation_id"`
	CreatedAt      time.Time     `json:"created_at"`
	Messages       []HistoryTurn `json:"messages"`
}
