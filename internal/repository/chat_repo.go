package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pomelo/internal/model"
	"pomelo/internal/pkg/id"
)

// ErrNotFound 查询无结果
var ErrNotFound = errors.New("not found")

// ChatRepo 会话仓库
// 四个写操作（StartChat/ContinueChat/EditChat/RegenerateAssistantMessage）
// 跨 chats/conversations/messages 三个集合，走多文档事务保证原子性
type ChatRepo struct {
	db            *mongo.Database
	chats         *mongo.Collection
	conversations *mongo.Collection
	messages      *mongo.Collection
}

// NewChatRepo 创建会话仓库
func NewChatRepo(db *mongo.Database) *ChatRepo {
	return &ChatRepo{
		db:            db,
		chats:         db.Collection("chats"),
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
	}
}

// withTransaction 在一个 mongo 会话中执行 fn
func (r *ChatRepo) withTransaction(ctx context.Context, fn func(ctx mongo.SessionContext) error) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// FindForUser 按 chat_id + user_id 查找未删除的会话
func (r *ChatRepo) FindForUser(ctx context.Context, chatID, userID string) (*model.Chat, error) {
	filter := bson.M{
		"chat_id":    chatID,
		"user_id":    userID,
		"is_deleted": false,
	}

	var chat model.Chat
	err := r.chats.FindOne(ctx, filter).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// RoundCost 一轮对话的计费数据
type RoundCost struct {
	CreditsUsed    primitive.Decimal128
	AICost         primitive.Decimal128
	TokensConsumed int64
}

// StartChatArgs 新会话的首轮写入
type StartChatArgs struct {
	ChatID         string
	UserID         string
	Title          string
	Provider       string
	Model          string
	ConversationID string
	UserText       string
	AssistantText  string
	Cost           RoundCost
}

// StartChat 创建会话 + 首轮对话 + 两条消息
func (r *ChatRepo) StartChat(ctx context.Context, args *StartChatArgs) error {
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		now := time.Now()

		chat := &model.Chat{
			ChatID:       args.ChatID,
			UserID:       args.UserID,
			Title:        args.Title,
			Provider:     args.Provider,
			Model:        args.Model,
			TotalTokens:  args.Cost.TokensConsumed,
			TotalCredits: args.Cost.CreditsUsed,
			TotalCost:    args.Cost.AICost,
			PreviousConversation: []model.HistoryTurn{
				{Role: model.RoleUser, Message: args.UserText},
				{Role: model.RoleAssistant, Message: args.AssistantText},
			},
			IsDeleted: false,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := r.chats.InsertOne(sc, chat); err != nil {
			return err
		}

		return r.insertRound(sc, args.ChatID, args.ConversationID, "", args.UserText, args.AssistantText, args.Cost, now)
	})
}

// ContinueChatArgs 续聊的一轮写入
type ContinueChatArgs struct {
	ChatID         string
	ConversationID string
	UserText       string
	AssistantText  string
	Cost           RoundCost
}

// ContinueChat 追加一轮对话并累加会话统计
func (r *ChatRepo) ContinueChat(ctx context.Context, args *ContinueChatArgs) error {
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		now := time.Now()

		update := bson.M{
			"$push": bson.M{
				"previous_conversation": bson.M{
					"$each": []model.HistoryTurn{
						{Role: model.RoleUser, Message: args.UserText},
						{Role: model.RoleAssistant, Message: args.AssistantText},
					},
				},
			},
			"$inc": bson.M{
				"total_tokens":  args.Cost.TokensConsumed,
				"total_credits": args.Cost.CreditsUsed,
				"total_cost":    args.Cost.AICost,
			},
			"$set": bson.M{"updated_at": now},
		}
		result, err := r.chats.UpdateOne(sc, bson.M{"chat_id": args.ChatID}, update)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return ErrNotFound
		}

		return r.insertRound(sc, args.ChatID, args.ConversationID, "", args.UserText, args.AssistantText, args.Cost, now)
	})
}

// EditChatArgs 编辑提问：新的一轮回指被编辑的一轮，上下文快照整体重建
type EditChatArgs struct {
	ChatID               string
	ConversationID       string
	EditedConversationID string
	UserText             string
	AssistantText        string
	History              []model.HistoryTurn
	Cost                 RoundCost
}

// EditChat 写入编辑后的一轮并重置上下文快照
func (r *ChatRepo) EditChat(ctx context.Context, args *EditChatArgs) error {
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		now := time.Now()

		snapshot := append(append([]model.HistoryTurn{}, args.History...),
			model.HistoryTurn{Role: model.RoleUser, Message: args.UserText},
			model.HistoryTurn{Role: model.RoleAssistant, Message: args.AssistantText},
		)

		update := bson.M{
			"$set": bson.M{
				"previous_conversation": snapshot,
				"updated_at":            now,
			},
			"$inc": bson.M{
				"total_tokens":  args.Cost.TokensConsumed,
				"total_credits": args.Cost.CreditsUsed,
				"total_cost":    args.Cost.AICost,
			},
		}
		result, err := r.chats.UpdateOne(sc, bson.M{"chat_id": args.ChatID}, update)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return ErrNotFound
		}

		return r.insertRound(sc, args.ChatID, args.ConversationID, args.EditedConversationID, args.UserText, args.AssistantText, args.Cost, now)
	})
}

// RegenerateArgs 重新生成：覆盖最近一轮的回答
type RegenerateArgs struct {
	ChatID         string
	ConversationID string
	AssistantText  string
	History        []model.HistoryTurn
	Cost           RoundCost
}

// RegenerateAssistantMessage 覆盖式更新：替换回答文本，累加本轮成本
func (r *ChatRepo) RegenerateAssistantMessage(ctx context.Context, args *RegenerateArgs) error {
	return r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		now := time.Now()

		// 替换该轮的回答消息
		msgUpdate := bson.M{
			"$set": bson.M{"message": args.AssistantText, "created_at": now},
		}
		msgFilter := bson.M{
			"conversation_id": args.ConversationID,
			"sender_role":     model.RoleAssistant,
		}
		result, err := r.messages.UpdateOne(sc, msgFilter, msgUpdate)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return ErrNotFound
		}

		// 本轮成本累加到对话上
		convUpdate := bson.M{
			"$inc": bson.M{
				"credits_used":    args.Cost.CreditsUsed,
				"ai_cost":         args.Cost.AICost,
				"tokens_consumed": args.Cost.TokensConsumed,
			},
			"$set": bson.M{"updated_at": now},
		}
		if _, err := r.conversations.UpdateOne(sc, bson.M{"conversation_id": args.ConversationID}, convUpdate); err != nil {
			return err
		}

		// 上下文快照的最后一条换成新的回答
		snapshot := append([]model.HistoryTurn{}, args.History...)
		snapshot = append(snapshot, model.HistoryTurn{Role: model.RoleAssistant, Message: args.AssistantText})

		chatUpdate := bson.M{
			"$set": bson.M{
				"previous_conversation": snapshot,
				"updated_at":            now,
			},
			"$inc": bson.M{
				"total_tokens":  args.Cost.TokensConsumed,
				"total_credits": args.Cost.CreditsUsed,
				"total_cost":    args.Cost.AICost,
			},
		}
		if _, err := r.chats.UpdateOne(sc, bson.M{"chat_id": args.ChatID}, chatUpdate); err != nil {
			return err
		}

		return nil
	})
}

// insertRound 插入一轮对话及其两条消息
func (r *ChatRepo) insertRound(sc mongo.SessionContext, chatID, conversationID, editedConversationID, userText, assistantText string, cost RoundCost, now time.Time) error {
	conv := &model.Conversation{
		ConversationID:       conversationID,
		ChatID:               chatID,
		EditedConversationID: editedConversationID,
		CreditsUsed:          cost.CreditsUsed,
		AICost:               cost.AICost,
		TokensConsumed:       cost.TokensConsumed,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if _, err := r.conversations.InsertOne(sc, conv); err != nil {
		return err
	}

	msgs := []interface{}{
		&model.Message{
			MessageID:      id.New(),
			ConversationID: conversationID,
			ChatID:         chatID,
			SenderRole:     model.RoleUser,
			Message:        userText,
			CreatedAt:      now,
		},
		&model.Message{
			MessageID:      id.New(),
			ConversationID: conversationID,
			ChatID:         chatID,
			SenderRole:     model.RoleAssistant,
			Message:        assistantText,
			CreatedAt:      now.Add(time.Millisecond),
		},
	}
	_, err := r.messages.InsertMany(sc, msgs)
	return err
}

// ConversationTip 会话的最新一轮及其消息
type ConversationTip struct {
	Conversation *model.Conversation
	Messages     []model.Message
}

// LatestConversation 取会话最新一轮（created_at 降序第一条）
func (r *ChatRepo) LatestConversation(ctx context.Context, chatID string) (*ConversationTip, error) {
	opts := options.FindOne().SetSort(bson.D{bson.E{Key: "created_at", Value: -1}})

	var conv model.Conversation
	err := r.conversations.FindOne(ctx, bson.M{"chat_id": chatID}, opts).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	msgOpts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
	cursor, err := r.messages.Find(ctx, bson.M{"conversation_id": conv.ConversationID}, msgOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}

	return &ConversationTip{Conversation: &conv, Messages: msgs}, nil
}

// PreviousMessagesExcluding 取指定轮之前的全部消息（时间升序），用于编辑时重建上下文
func (r *ChatRepo) PreviousMessagesExcluding(ctx context.Context, chatID, excludeConversationID string) ([]model.HistoryTurn, error) {
	filter := bson.M{
		"chat_id":         chatID,
		"conversation_id": bson.M{"$ne": excludeConversationID},
	}
	opts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})

	cursor, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}

	turns := make([]model.HistoryTurn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, model.HistoryTurn{Role: m.SenderRole, Message: m.Message})
	}
	return turns, nil
}

// ConversationRounds 按轮分页：created_at 降序取 before 之前的 limit 轮
func (r *ChatRepo) ConversationRounds(ctx context.Context, chatID string, before *time.Time, limit int64) ([]model.ConversationRound, error) {
	filter := bson.M{"chat_id": chatID}
	if before != nil {
		filter["created_at"] = bson.M{"$lt": *before}
	}
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.conversations.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var convs []model.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}

	rounds := make([]model.ConversationRound, 0, len(convs))
	for _, conv := range convs {
		msgOpts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
		msgCursor, err := r.messages.Find(ctx, bson.M{"conversation_id": conv.ConversationID}, msgOpts)
		if err != nil {
			return nil, err
		}

		var msgs []model.Message
		if err := msgCursor.All(ctx, &msgs); err != nil {
			return nil, err
		}

		turns := make([]model.HistoryTurn, 0, len(msgs))
		for _, m := range msgs {
			turns = append(turns, model.HistoryTurn{Role: m.SenderRole, Message: m.Message})
		}
		rounds = append(rounds, model.ConversationRound{
			ConversationID: conv.ConversationID,
			CreatedAt:      conv.CreatedAt,
			Messages:       turns,
		})
	}

	return rounds, nil
}

// UpdateTitle 修改会话标题
func (r *ChatRepo) UpdateTitle(ctx context.Context, chatID, title string) error {
	update := bson.M{
		"$set": bson.M{"title": title, "updated_at": time.Now()},
	}
	result, err := r.chats.UpdateOne(ctx, bson.M{"chat_id": chatID, "is_deleted": false}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete 软删除会话
func (r *ChatRepo) SoftDelete(ctx context.Context, chatID, userID string) error {
	filter := bson.M{"chat_id": chatID, "user_id": userID, "is_deleted": false}
	update := bson.M{
		"$set": bson.M{"is_deleted": true, "updated_at": time.Now()},
	}
	result, err := r.chats.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser 用户未删除会话列表（updated_at 降序，不带上下文快照）
func (r *ChatRepo) ListForUser(ctx context.Context, userID string) ([]*model.Chat, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"previous_conversation": 0})

	cursor, err := r.chats.Find(ctx, bson.M{"user_id": userID, "is_deleted": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chats []*model.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}
