package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pomelo/internal/ai"
	"pomelo/internal/model"
	"pomelo/internal/pkg/apperr"
	"pomelo/internal/pkg/id"
	"pomelo/internal/pricing"
	"pomelo/internal/repository"
	"pomelo/internal/secrets"
)

// 会话分页每页轮数
const chatPageSize = 5

// 新会话标题的最大长度（按字符数截断）
const maxTitleLength = 280

// ChatStore 会话持久化接口
type ChatStore interface {
	FindForUser(ctx context.Context, chatID, userID string) (*model.Chat, error)
	StartChat(ctx context.Context, args *repository.StartChatArgs) error
	ContinueChat(ctx context.Context, args *repository.ContinueChatArgs) error
	EditChat(ctx context.Context, args *repository.EditChatArgs) error
	RegenerateAssistantMessage(ctx context.Context, args *repository.RegenerateArgs) error
	LatestConversation(ctx context.Context, chatID string) (*repository.ConversationTip, error)
	PreviousMessagesExcluding(ctx context.Context, chatID, excludeConversationID string) ([]model.HistoryTurn, error)
	ConversationRounds(ctx context.Context, chatID string, before *time.Time, limit int64) ([]model.ConversationRound, error)
	UpdateTitle(ctx context.Context, chatID, title string) error
	SoftDelete(ctx context.Context, chatID, userID string) error
	ListForUser(ctx context.Context, userID string) ([]*model.Chat, error)
}

// CreditsStore 积分持久化接口
type CreditsStore interface {
	FindByUserID(ctx context.Context, userID string) (*model.UserCredits, error)
	UpdateCredits(ctx context.Context, userID string, credits primitive.Decimal128) error
}

// ConfigSource 提供商目录来源
type ConfigSource interface {
	ChatConfig(ctx context.Context) (*secrets.ChatConfig, error)
}

// Dispatcher 上游调用分发接口
type Dispatcher interface {
	Invoke(ctx context.Context, provider *secrets.Provider, req *ai.PromptRequest) (*ai.Result, error)
}

// ChatService 会话服务
// 编排顺序固定：校验 → 余额门槛 → 上游调用 → 计费 → 扣费 → 内容落库
// 扣费永远先于内容写入，写入失败时积分不回滚（单独记日志以便排查）
type ChatService struct {
	chats   ChatStore
	credits CreditsStore
	config  ConfigSource
	ai      Dispatcher
}

// NewChatService 创建会话服务
func NewChatService(chats ChatStore, credits CreditsStore, config ConfigSource, dispatcher Dispatcher) *ChatService {
	return &ChatService{
		chats:   chats,
		credits: credits,
		config:  config,
		ai:      dispatcher,
	}
}

// Send 发送消息：chat_id 为空走新会话分支，否则续聊
func (s *ChatService) Send(ctx context.Context, userID string, req *model.SendChatRequest) (*model.SendChatResult, error) {
	if req.Text == "" {
		return nil, apperr.MissingField("text")
	}

	balance, err := s.userBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.config.ChatConfig(ctx)
	if err != nil {
		return nil, apperr.UpstreamRequestFailed(err)
	}

	isNew := req.ChatID == ""

	var chat *model.Chat
	providerID, modelName := req.Provider, req.Model
	if isNew {
		if providerID == "" {
			return nil, apperr.MissingField("provider")
		}
		if modelName == "" {
			return nil, apperr.MissingField("model")
		}
	} else {
		chat, err = s.chats.FindForUser(ctx, req.ChatID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ChatNotFound()
		}
		if err != nil {
			return nil, apperr.PersistenceFailed(err)
		}
		// 已有会话永远沿用创建时的提供商和模型
		providerID, modelName = chat.Provider, chat.Model
	}

	provider, modelEntry, err := resolveModel(cfg, providerID, modelName)
	if err != nil {
		return nil, err
	}

	if err := pricing.CheckCredits(balance, modelEntry.MinCredits); err != nil {
		return nil, err
	}

	var history []model.HistoryTurn
	if chat != nil {
		history = chat.PreviousConversation
	}

	result, cost, err := s.invokeAndPrice(ctx, cfg, provider, &ai.PromptRequest{
		Model:       modelName,
		Text:        req.Text,
		History:     history,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	if err := s.debit(ctx, userID, balance, cost.CreditsUtilised); err != nil {
		return nil, err
	}

	roundCost, err := toRoundCost(cost, result)
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}

	chatID := req.ChatID
	conversationID := id.New()
	title := ""
	if isNew {
		chatID = id.New()
		title = truncateTitle(req.Text)
		err = s.chats.StartChat(ctx, &repository.StartChatArgs{
			ChatID:         chatID,
			UserID:         userID,
			Title:          title,
			Provider:       providerID,
			Model:          modelName,
			ConversationID: conversationID,
			UserText:       req.Text,
			AssistantText:  result.GeneratedText,
			Cost:           roundCost,
		})
	} else {
		err = s.chats.ContinueChat(ctx, &repository.ContinueChatArgs{
			ChatID:         chatID,
			ConversationID: conversationID,
			UserText:       req.Text,
			AssistantText:  result.GeneratedText,
			Cost:           roundCost,
		})
	}
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("chat_id", chatID).
			Str("credits_utilised", cost.CreditsUtilised.String()).
			Msg("content persistence failed after credit debit")
		return nil, apperr.PersistenceFailed(err)
	}

	credits, _ := cost.CreditsUtilised.Float64()
	return &model.SendChatResult{
		Success:         true,
		Message:         "Chat response generated successfully.",
		ChatID:          chatID,
		ConversationID:  conversationID,
		GeneratedText:   result.GeneratedText,
		CreditsUtilised: credits,
		Provider:        providerID,
		Model:           modelName,
		Title:           title,
	}, nil
}

// EditPrompt 编辑最近一轮提问，生成新的一轮回指旧轮
func (s *ChatService) EditPrompt(ctx context.Context, userID string, req *model.EditPromptRequest) (*model.EditPromptResult, error) {
	if req.ChatID == "" {
		return nil, apperr.MissingField("chat_id")
	}
	if req.ConversationID == "" {
		return nil, apperr.MissingField("conversation_id")
	}
	if req.Text == "" {
		return nil, apperr.MissingField("text")
	}

	balance, err := s.userBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	chat, err := s.chats.FindForUser(ctx, req.ChatID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ChatNotFound()
	}
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}

	cfg, err := s.config.ChatConfig(ctx)
	if err != nil {
		return nil, apperr.UpstreamRequestFailed(err)
	}

	provider, modelEntry, err := resolveModel(cfg, chat.Provider, chat.Model)
	if err != nil {
		return nil, err
	}

	if err := pricing.CheckCredits(balance, modelEntry.MinCredits); err != nil {
		return nil, err
	}

	// 只允许编辑最新一轮
	tip, err := s.chats.LatestConversation(ctx, req.ChatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ConversationMismatch()
	}
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}
	if tip.Conversation.ConversationID != req.ConversationID {
		return nil, apperr.ConversationMismatch()
	}

	history, err := s.chats.PreviousMessagesExcluding(ctx, req.ChatID, req.ConversationID)
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}

	result, cost, err := s.invokeAndPrice(ctx, cfg, provider, &ai.PromptRequest{
		Model:       chat.Model,
		Text:        req.Text,
		History:     history,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	if err := s.debit(ctx, userID, balance, cost.CreditsUtilised); err != nil {
		return nil, err
	}

	roundCost, err := toRoundCost(cost, result)
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}

	newConversationID := id.New()
	err = s.chats.EditChat(ctx, &repository.EditChatArgs{
		ChatID:               req.ChatID,
		ConversationID:       newConversationID,
		EditedConversationID: req.ConversationID,
		UserText:             req.Text,
		AssistantText:        result.GeneratedText,
		History:              history,
		Cost:                 roundCost,
	})
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("chat_id", req.ChatID).
			Str("credits_utilised", cost.CreditsUtilised.String()).
			Msg("content persistence failed after credit debit")
		return nil, apperr.PersistenceFailed(err)
	}

	credits, _ := cost.CreditsUtilised.Float64()
	return &model.EditPromptResult{
		Success:              true,
		Message:              "Prompt edited successfully.",
		ChatID:               req.ChatID,
		NewConversationID:    newConversationID,
		EditedConversationID: req.ConversationID,
		GeneratedText:        result.GeneratedText,
		CreditsUtilised:      credits,
	}, nil
}

// Regenerate 重新生成最近一轮的回答（覆盖式，不产生新轮）
func (s *ChatService) Regenerate(ctx context.Context, userID string, req *model.RegenerateRequest) (*model.RegenerateResult, error) {
	if req.ChatID == "" {
		return nil, apperr.MissingField("chat_id")
	}
	if req.ConversationID == "" {
		return nil, apperr.MissingField("conversation_id")
	}

	balance, err := s.userBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	chat, err := s.chats.FindForUser(ctx, req.ChatID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ChatNotFound()
	}
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}

	cfg, err := s.config.ChatConfig(ctx)
	if err != nil {
		return nil, apperr.UpstreamRequestFailed(err)
	}

	provider, modelEntry, err := resolveModel(cfg, chat.Provider, chat.Model)
	if err != nil {
		return nil, err
	}

	if err := pricing.CheckCredits(balance, modelEntry.MinCredits); err != nil {
		return nil, err
	}

	tip, err := s.chats.LatestConversation(ctx, req.ChatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ConversationMismatch()
	}
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}
	if tip.Conversation.ConversationID != req.ConversationID {
		return nil, apperr.ConversationMismatch()
	}
	// 一轮超过一问一答说明已经重新生成过
	if len(tip.Messages) > 2 {
		return nil, apperr.RegenerateLimit()
	}

	userText := ""
	for _, m := range tip.Messages {
		if m.SenderRole == model.RoleUser {
			userText = m.Message
			break
		}
	}
	if userText == "" {
		return nil, apperr.ConversationMismatch()
	}

	history, err := s.chats.PreviousMessagesExcluding(ctx, req.ChatID, req.ConversationID)
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}

	result, cost, err := s.invokeAndPrice(ctx, cfg, provider, &ai.PromptRequest{
		Model:       chat.Model,
		Text:        userText,
		History:     history,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Regenerate:  true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.debit(ctx, userID, balance, cost.CreditsUtilised); err != nil {
		return nil, err
	}

	roundCost, err := toRoundCost(cost, result)
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}

	// 快照前缀 = 本轮之前的消息 + 被复用的提问
	snapshot := append(history, model.HistoryTurn{Role: model.RoleUser, Message: userText})
	err = s.chats.RegenerateAssistantMessage(ctx, &repository.RegenerateArgs{
		ChatID:         req.ChatID,
		ConversationID: req.ConversationID,
		AssistantText:  result.GeneratedText,
		History:        snapshot,
		Cost:           roundCost,
	})
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID).
			Str("chat_id", req.ChatID).
			Str("credits_utilised", cost.CreditsUtilised.String()).
			Msg("content persistence failed after credit debit")
		return nil, apperr.PersistenceFailed(err)
	}

	credits, _ := cost.CreditsUtilised.Float64()
	return &model.RegenerateResult{
		Success:         true,
		Message:         "Assistant message regenerated successfully.",
		ChatID:          req.ChatID,
		ConversationID:  req.ConversationID,
		GeneratedText:   result.GeneratedText,
		CreditsUtilised: credits,
	}, nil
}

// EditTitle 修改会话标题
func (s *ChatService) EditTitle(ctx context.Context, userID string, req *model.EditTitleRequest) (*model.EditTitleResult, error) {
	if req.ChatID == "" {
		return nil, apperr.MissingField("chat_id")
	}
	if req.Title == "" {
		return nil, apperr.MissingField("title")
	}

	if _, err := s.chats.FindForUser(ctx, req.ChatID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ChatNotFound()
		}
		return nil, apperr.PersistenceFailed(err)
	}

	title := truncateTitle(req.Title)
	if err := s.chats.UpdateTitle(ctx, req.ChatID, title); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ChatNotFound()
		}
		return nil, apperr.PersistenceFailed(err)
	}

	return &model.EditTitleResult{
		Success: true,
		Message: "Chat title updated successfully.",
		ChatID:  req.ChatID,
		Title:   title,
	}, nil
}

// Delete 软删除会话
func (s *ChatService) Delete(ctx context.Context, userID string, req *model.DeleteChatRequest) (*model.DeleteChatResult, error) {
	if req.ChatID == "" {
		return nil, apperr.MissingField("chat_id")
	}

	if err := s.chats.SoftDelete(ctx, req.ChatID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ChatNotFound()
		}
		return nil, apperr.PersistenceFailed(err)
	}

	return &model.DeleteChatResult{
		Success: true,
		Message: "Chat deleted successfully.",
		ChatID:  req.ChatID,
	}, nil
}

// GetChat 会话分页：每页固定轮数，游标为上一页最旧一轮的时间戳
func (s *ChatService) GetChat(ctx context.Context, userID, chatID string, before *time.Time) (*model.GetChatResult, error) {
	if chatID == "" {
		return nil, apperr.MissingField("chat_id")
	}

	if _, err := s.chats.FindForUser(ctx, chatID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ChatNotFound()
		}
		return nil, apperr.PersistenceFailed(err)
	}

	// 多取一轮判断是否还有下一页
	rounds, err := s.chats.ConversationRounds(ctx, chatID, before, chatPageSize+1)
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}

	result := &model.GetChatResult{}
	if len(rounds) > chatPageSize {
		rounds = rounds[:chatPageSize]
		cursor := rounds[len(rounds)-1].CreatedAt
		result.NextTimestamp = &cursor
	}
	result.PreviousHistory = rounds

	return result, nil
}

// Overview 概览：积分余额、提供商目录（不含密钥）、按日期分桶的会话列表
func (s *ChatService) Overview(ctx context.Context, userID string) (*model.OverviewResult, error) {
	balance, err := s.userBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.config.ChatConfig(ctx)
	if err != nil {
		return nil, apperr.UpstreamRequestFailed(err)
	}

	chats, err := s.chats.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.PersistenceFailed(err)
	}

	providers := make([]model.ProviderOverview, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		models := make([]model.ModelOverview, 0, len(p.Models))
		for _, m := range p.Models {
			minCredits, _ := m.MinCredits.Float64()
			models = append(models, model.ModelOverview{
				Name:       m.Name,
				Model:      m.Model,
				MinCredits: minCredits,
			})
		}
		providers = append(providers, model.ProviderOverview{
			Name:   p.Name,
			Icon:   p.Icon,
			ID:     string(p.ID),
			Models: models,
		})
	}

	credits, _ := balance.Float64()
	return &model.OverviewResult{
		ChatHistory: bucketChats(chats, time.Now()),
		UserCredits: credits,
		Providers:   providers,
	}, nil
}

// bucketChats 按更新时间分桶：今天 / 昨天 / 更早
func bucketChats(chats []*model.Chat, now time.Time) model.ChatHistoryBuckets {
	buckets := model.ChatHistoryBuckets{
		TodayChats:       []model.ChatSummary{},
		PreviousDayChats: []model.ChatSummary{},
		OtherChats:       []model.ChatSummary{},
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)

	for _, c := range chats {
		summary := model.ChatSummary{
			ChatID:    c.ChatID,
			Title:     c.Title,
			Provider:  c.Provider,
			Model:     c.Model,
			UpdatedAt: c.UpdatedAt,
		}
		switch {
		case !c.UpdatedAt.Before(today):
			buckets.TodayChats = append(buckets.TodayChats, summary)
		case !c.UpdatedAt.Before(yesterday):
			buckets.PreviousDayChats = append(buckets.PreviousDayChats, summary)
		default:
			buckets.OtherChats = append(buckets.OtherChats, summary)
		}
	}

	return buckets
}

// resolveModel 在目录中解析 (provider, model)，任一缺失都按不支持处理
func resolveModel(cfg *secrets.ChatConfig, providerID, modelName string) (*secrets.Provider, *secrets.Model, error) {
	provider, ok := cfg.Provider(providerID)
	if !ok {
		return nil, nil, apperr.UnsupportedModel(providerID, modelName)
	}
	modelEntry, ok := provider.Model(modelName)
	if !ok {
		return nil, nil, apperr.UnsupportedModel(providerID, modelName)
	}
	return provider, modelEntry, nil
}

// userBalance 读取用户积分余额
func (s *ChatService) userBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	credits, err := s.credits.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, apperr.UserNotFound()
	}
	if err != nil {
		return decimal.Zero, apperr.PersistenceFailed(err)
	}
	balance, err := model.FromDecimal128(credits.Credits)
	if err != nil {
		return decimal.Zero, apperr.PersistenceFailed(err)
	}
	return balance, nil
}

// invokeAndPrice 调上游并计费，AIML 渠道按转售费率计
func (s *ChatService) invokeAndPrice(ctx context.Context, cfg *secrets.ChatConfig, provider *secrets.Provider, req *ai.PromptRequest) (*ai.Result, *pricing.Cost, error) {
	result, err := s.ai.Invoke(ctx, provider, req)
	if err != nil {
		return nil, nil, err
	}

	resold := provider.ID == secrets.ProviderAIML
	cost, err := pricing.Compute(req.Model, resold, result.InputUnits, result.OutputUnits, cfg.CostFactor)
	if err != nil {
		return nil, nil, err
	}

	return result, cost, nil
}

// debit 扣减余额，先于内容写入执行
func (s *ChatService) debit(ctx context.Context, userID string, balance, creditsUtilised decimal.Decimal) error {
	newBalance, err := model.ToDecimal128(balance.Sub(creditsUtilised))
	if err != nil {
		return apperr.PersistenceFailed(err)
	}
	if err := s.credits.UpdateCredits(ctx, userID, newBalance); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.UserNotFound()
		}
		return apperr.PersistenceFailed(err)
	}
	return nil
}

// toRoundCost 计费结果转为落库用的 Decimal128
func toRoundCost(cost *pricing.Cost, result *ai.Result) (repository.RoundCost, error) {
	creditsUsed, err := model.ToDecimal128(cost.CreditsUtilised)
	if err != nil {
		return repository.RoundCost{}, err
	}
	aiCost, err := model.ToDecimal128(cost.AICost)
	if err != nil {
		return repository.RoundCost{}, err
	}
	return repository.RoundCost{
		CreditsUsed:    creditsUsed,
		AICost:         aiCost,
		TokensConsumed: result.InputUnits + result.OutputUnits,
	}, nil
}

// truncateTitle 标题截断
func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleLength {
		return text
	}
	return string(runes[:maxTitleLength])
}
