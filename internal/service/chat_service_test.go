package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pomelo/internal/ai"
	"pomelo/internal/model"
	"pomelo/internal/pkg/apperr"
	"pomelo/internal/pricing"
	"pomelo/internal/repository"
	"pomelo/internal/secrets"
)

func d128(s string) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(s)
	if err != nil {
		panic(err)
	}
	return v
}

// fakeChatStore 内存版会话存储，记录写入参数
type fakeChatStore struct {
	chat   *model.Chat
	tip    *repository.ConversationTip
	prior  []model.HistoryTurn
	rounds []model.ConversationRound

	startArgs    *repository.StartChatArgs
	continueArgs *repository.ContinueChatArgs
	editArgs     *repository.EditChatArgs
	regenArgs    *repository.RegenerateArgs

	failWrites bool
	titleSet   string
	deleted    bool
}

var errWriteFailed = errors.New("write failed")

func (f *fakeChatStore) FindForUser(_ context.Context, chatID, userID string) (*model.Chat, error) {
	if f.chat == nil || f.chat.ChatID != chatID || f.chat.UserID != userID || f.chat.IsDeleted {
		return nil, repository.ErrNotFound
	}
	return f.chat, nil
}

func (f *fakeChatStore) StartChat(_ context.Context, args *repository.StartChatArgs) error {
	if f.failWrites {
		return errWriteFailed
	}
	f.startArgs = args
	return nil
}

func (f *fakeChatStore) ContinueChat(_ context.Context, args *repository.ContinueChatArgs) error {
	if f.failWrites {
		return errWriteFailed
	}
	f.continueArgs = args
	return nil
}

func (f *fakeChatStore) EditChat(_ context.Context, args *repository.EditChatArgs) error {
	if f.failWrites {
		return errWriteFailed
	}
	f.editArgs = args
	return nil
}

func (f *fakeChatStore) RegenerateAssistantMessage(_ context.Context, args *repository.RegenerateArgs) error {
	if f.failWrites {
		return errWriteFailed
	}
	f.regenArgs = args
	return nil
}

func (f *fakeChatStore) LatestConversation(_ context.Context, chatID string) (*repository.ConversationTip, error) {
	if f.tip == nil {
		return nil, repository.ErrNotFound
	}
	return f.tip, nil
}

func (f *fakeChatStore) PreviousMessagesExcluding(_ context.Context, chatID, excludeConversationID string) ([]model.HistoryTurn, error) {
	return f.prior, nil
}

func (f *fakeChatStore) ConversationRounds(_ context.Context, chatID string, before *time.Time, limit int64) ([]model.ConversationRound, error) {
	rounds := f.rounds
	if before != nil {
		filtered := rounds[:0:0]
		for _, r := range rounds {
			if r.CreatedAt.Before(*before) {
				filtered = append(filtered, r)
			}
		}
		rounds = filtered
	}
	if int64(len(rounds)) > limit {
		rounds = rounds[:limit]
	}
	return rounds, nil
}

func (f *fakeChatStore) UpdateTitle(_ context.Context, chatID, title string) error {
	f.titleSet = title
	return nil
}

func (f *fakeChatStore) SoftDelete(_ context.Context, chatID, userID string) error {
	if f.chat == nil || f.chat.ChatID != chatID {
		return repository.ErrNotFound
	}
	f.deleted = true
	return nil
}

func (f *fakeChatStore) ListForUser(_ context.Context, userID string) ([]*model.Chat, error) {
	if f.chat == nil {
		return nil, nil
	}
	return []*model.Chat{f.chat}, nil
}

// fakeCreditsStore 内存版积分存储
type fakeCreditsStore struct {
	balance  primitive.Decimal128
	notFound bool
	updated  *primitive.Decimal128
}

func (f *fakeCreditsStore) FindByUserID(_ context.Context, userID string) (*model.UserCredits, error) {
	if f.notFound {
		return nil, repository.ErrNotFound
	}
	return &model.UserCredits{UserID: userID, Credits: f.balance}, nil
}

func (f *fakeCreditsStore) UpdateCredits(_ context.Context, userID string, credits primitive.Decimal128) error {
	f.updated = &credits
	return nil
}

// fakeConfigSource 固定目录
type fakeConfigSource struct {
	cfg *secrets.ChatConfig
}

func (f *fakeConfigSource) ChatConfig(_ context.Context) (*secrets.ChatConfig, error) {
	return f.cfg, nil
}

// fakeDispatcher 计数版分发器
type fakeDispatcher struct {
	calls        int
	lastProvider *secrets.Provider
	lastReq      *ai.PromptRequest
	result       *ai.Result
	err          error
}

func (f *fakeDispatcher) Invoke(_ context.Context, provider *secrets.Provider, req *ai.PromptRequest) (*ai.Result, error) {
	f.calls++
	f.lastProvider = provider
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testConfig() *secrets.ChatConfig {
	return &secrets.ChatConfig{
		Temperature: 0.7,
		MaxTokens:   2048,
		CostFactor:  1000,
		Providers: []secrets.Provider{
			{
				Name: "OpenAI", ID: secrets.ProviderOpenAI, Key: "sk-test",
				Models: []secrets.Model{
					{Name: "GPT-4o", Model: "gpt-4o", MinCredits: decimal.RequireFromString("10")},
				},
			},
			{
				Name: "AIML", ID: secrets.ProviderAIML, Key: "aiml-test", URL: "https://api.aimlapi.com/v1",
				Models: []secrets.Model{
					{Name: "Llama 3.2 3B", Model: "meta-llama/Llama-3.2-3B-Instruct-Turbo", MinCredits: decimal.RequireFromString("0.5")},
				},
			},
		},
	}
}

func newTestService(chats *fakeChatStore, credits *fakeCreditsStore, dispatcher *fakeDispatcher) *ChatService {
	return NewChatService(chats, credits, &fakeConfigSource{cfg: testConfig()}, dispatcher)
}

func appErrCode(err error) int {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

// TestSendNewChat 测试新会话分支
func TestSendNewChat(t *testing.T) {
	Convey("新会话测试", t, func() {
		ctx := context.Background()
		chats := &fakeChatStore{}
		credits := &fakeCreditsStore{balance: d128("100")}
		dispatcher := &fakeDispatcher{result: &ai.Result{GeneratedText: "generated", InputUnits: 1000, OutputUnits: 2000}}
		svc := newTestService(chats, credits, dispatcher)

		Convey("完整流程：调用一次上游并落库", func() {
			result, err := svc.Send(ctx, "user-1", &model.SendChatRequest{
				Provider: "OPENAI",
				Model:    "gpt-4o",
				Text:     "hello world",
			})

			So(err, ShouldBeNil)
			So(result.Success, ShouldBeTrue)
			So(result.ChatID, ShouldNotBeEmpty)
			So(result.ConversationID, ShouldNotBeEmpty)
			So(result.GeneratedText, ShouldEqual, "generated")
			So(result.Provider, ShouldEqual, "OPENAI")
			So(result.Model, ShouldEqual, "gpt-4o")
			So(dispatcher.calls, ShouldEqual, 1)

			Convey("新会话走 StartChat，标题取自提问", func() {
				So(chats.startArgs, ShouldNotBeNil)
				So(chats.continueArgs, ShouldBeNil)
				So(chats.startArgs.Title, ShouldEqual, "hello world")
				So(chats.startArgs.UserText, ShouldEqual, "hello world")
				So(chats.startArgs.AssistantText, ShouldEqual, "generated")
			})

			Convey("扣费金额与计价一致", func() {
				cost, err := pricing.Compute("gpt-4o", false, 1000, 2000, 1000)
				So(err, ShouldBeNil)
				expected := decimal.RequireFromString("100").Sub(cost.CreditsUtilised)
				So(credits.updated, ShouldNotBeNil)
				So(credits.updated.String(), ShouldEqual, expected.String())
			})
		})

		Convey("标题超长时截断", func() {
			long := strings.Repeat("字", 300)
			result, err := svc.Send(ctx, "user-1", &model.SendChatRequest{
				Provider: "OPENAI",
				Model:    "gpt-4o",
				Text:     long,
			})

			So(err, ShouldBeNil)
			So(len([]rune(result.Title)), ShouldEqual, 280)
			So(len([]rune(chats.startArgs.Title)), ShouldEqual, 280)
		})

		Convey("缺失字段校验", func() {
			_, err := svc.Send(ctx, "user-1", &model.SendChatRequest{Provider: "OPENAI", Model: "gpt-4o"})
			So(appErrCode(err), ShouldEqual, 40001)

			_, err = svc.Send(ctx, "user-1", &model.SendChatRequest{Model: "gpt-4o", Text: "hi"})
			So(appErrCode(err), ShouldEqual, 40001)

			_, err = svc.Send(ctx, "user-1", &model.SendChatRequest{Provider: "OPENAI", Text: "hi"})
			So(appErrCode(err), ShouldEqual, 40001)
		})

		Convey("目录外的提供商或模型被拒绝", func() {
			_, err := svc.Send(ctx, "user-1", &model.SendChatRequest{Provider: "VERTEX", Model: "gemini-1.5-flash", Text: "hi"})
			So(appErrCode(err), ShouldEqual, 40002)

			_, err = svc.Send(ctx, "user-1", &model.SendChatRequest{Provider: "OPENAI", Model: "o1-preview", Text: "hi"})
			So(appErrCode(err), ShouldEqual, 40002)
			So(dispatcher.calls, ShouldEqual, 0)
		})

		Convey("积分账户不存在返回 UserNotFound", func() {
			credits.notFound = true
			_, err := svc.Send(ctx, "user-1", &model.SendChatRequest{Provider: "OPENAI", Model: "gpt-4o", Text: "hi"})
			So(appErrCode(err), ShouldEqual, 40005)
		})

		Convey("余额门槛：等于门槛通过，低于门槛拒绝", func() {
			credits.balance = d128("10")
			_, err := svc.Send(ctx, "user-1", &model.SendChatRequest{Provider: "OPENAI", Model: "gpt-4o", Text: "hi"})
			So(err, ShouldBeNil)

			credits.balance = d128("9.99999999")
			_, err = svc.Send(ctx, "user-1", &model.SendChatRequest{Provider: "OPENAI", Model: "gpt-4o", Text: "hi"})
			So(appErrCode(err), ShouldEqual, 40301)
		})

		Convey("上游失败时不扣费", func() {
			dispatcher.err = errors.New("connection reset")
			_, err := svc.Send(ctx, "user-1", &model.SendChatRequest{Provider: "OPENAI", Model: "gpt-4o", Text: "hi"})
			So(appErrCode(err), ShouldEqual, 50201)
			So(credits.updated, ShouldBeNil)
		})

		Convey("落库失败时已扣积分不回滚", func() {
			chats.failWrites = true
			_, err := svc.Send(ctx, "user-1", &model.SendChatRequest{Provider: "OPENAI", Model: "gpt-4o", Text: "hi"})
			So(appErrCode(err), ShouldEqual, 50202)
			So(credits.updated, ShouldNotBeNil)
		})
	})
}

// TestSendContinueChat 测试续聊分支
func TestSendContinueChat(t *testing.T) {
	Convey("续聊测试", t, func() {
		ctx := context.Background()
		history := []model.HistoryTurn{
			{Role: model.RoleUser, Message: "q1"},
			{Role: model.RoleAssistant, Message: "a1"},
		}
		chats := &fakeChatStore{
			chat: &model.Chat{
				ChatID:               "chat-1",
				UserID:               "user-1",
				Provider:             "OPENAI",
				Model:                "gpt-4o",
				PreviousConversation: history,
			},
		}
		credits := &fakeCreditsStore{balance: d128("100")}
		dispatcher := &fakeDispatcher{result: &ai.Result{GeneratedText: "a2", InputUnits: 10, OutputUnits: 20}}
		svc := newTestService(chats, credits, dispatcher)

		Convey("续聊走 ContinueChat，历史随请求下发", func() {
			result, err := svc.Send(ctx, "user-1", &model.SendChatRequest{ChatID: "chat-1", Text: "q2"})

			So(err, ShouldBeNil)
			So(result.ChatID, ShouldEqual, "chat-1")
			So(chats.continueArgs, ShouldNotBeNil)
			So(chats.startArgs, ShouldBeNil)
			So(dispatcher.lastReq.History, ShouldResemble, history)
			So(dispatcher.lastReq.Text, ShouldEqual, "q2")
		})

		Convey("提供商和模型永远取自会话记录", func() {
			_, err := svc.Send(ctx, "user-1", &model.SendChatRequest{
				ChatID:   "chat-1",
				Provider: "AIML",
				Model:    "meta-llama/Llama-3.2-3B-Instruct-Turbo",
				Text:     "q2",
			})

			So(err, ShouldBeNil)
			So(dispatcher.lastReq.Model, ShouldEqual, "gpt-4o")
			So(dispatcher.lastProvider.ID, ShouldEqual, secrets.ProviderOpenAI)
		})

		Convey("会话不存在或不属于用户时拒绝", func() {
			_, err := svc.Send(ctx, "user-2", &model.SendChatRequest{ChatID: "chat-1", Text: "q2"})
			So(appErrCode(err), ShouldEqual, 40003)

			_, err = svc.Send(ctx, "user-1", &model.SendChatRequest{ChatID: "chat-404", Text: "q2"})
			So(appErrCode(err), ShouldEqual, 40003)
		})

		Convey("已删除的会话等同不存在", func() {
			chats.chat.IsDeleted = true
			_, err := svc.Send(ctx, "user-1", &model.SendChatRequest{ChatID: "chat-1", Text: "q2"})
			So(appErrCode(err), ShouldEqual, 40003)
		})
	})
}

// TestEditPrompt 测试编辑提问
func TestEditPrompt(t *testing.T) {
	Convey("编辑提问测试", t, func() {
		ctx := context.Background()
		prior := []model.HistoryTurn{
			{Role: model.RoleUser, Message: "q1"},
			{Role: model.RoleAssistant, Message: "a1"},
		}
		chats := &fakeChatStore{
			chat: &model.Chat{ChatID: "chat-1", UserID: "user-1", Provider: "OPENAI", Model: "gpt-4o"},
			tip: &repository.ConversationTip{
				Conversation: &model.Conversation{ConversationID: "conv-2", ChatID: "chat-1"},
				Messages: []model.Message{
					{SenderRole: model.RoleUser, Message: "q2"},
					{SenderRole: model.RoleAssistant, Message: "a2"},
				},
			},
			prior: prior,
		}
		credits := &fakeCreditsStore{balance: d128("100")}
		dispatcher := &fakeDispatcher{result: &ai.Result{GeneratedText: "a2-edited", InputUnits: 10, OutputUnits: 20}}
		svc := newTestService(chats, credits, dispatcher)

		Convey("成功：新轮回指被编辑的一轮", func() {
			result, err := svc.EditPrompt(ctx, "user-1", &model.EditPromptRequest{
				ChatID:         "chat-1",
				ConversationID: "conv-2",
				Text:           "q2-edited",
			})

			So(err, ShouldBeNil)
			So(result.EditedConversationID, ShouldEqual, "conv-2")
			So(result.NewConversationID, ShouldNotBeEmpty)
			So(result.NewConversationID, ShouldNotEqual, "conv-2")

			So(chats.editArgs, ShouldNotBeNil)
			So(chats.editArgs.EditedConversationID, ShouldEqual, "conv-2")
			So(chats.editArgs.History, ShouldResemble, prior)

			Convey("上下文不含被编辑的那一轮", func() {
				So(dispatcher.lastReq.History, ShouldResemble, prior)
				So(dispatcher.lastReq.Text, ShouldEqual, "q2-edited")
			})
		})

		Convey("过期的 conversation_id 被拒绝", func() {
			_, err := svc.EditPrompt(ctx, "user-1", &model.EditPromptRequest{
				ChatID:         "chat-1",
				ConversationID: "conv-1",
				Text:           "stale edit",
			})
			So(appErrCode(err), ShouldEqual, 40004)
			So(dispatcher.calls, ShouldEqual, 0)
		})

		Convey("必填字段校验", func() {
			_, err := svc.EditPrompt(ctx, "user-1", &model.EditPromptRequest{ConversationID: "conv-2", Text: "x"})
			So(appErrCode(err), ShouldEqual, 40001)

			_, err = svc.EditPrompt(ctx, "user-1", &model.EditPromptRequest{ChatID: "chat-1", Text: "x"})
			So(appErrCode(err), ShouldEqual, 40001)

			_, err = svc.EditPrompt(ctx, "user-1", &model.EditPromptRequest{ChatID: "chat-1", ConversationID: "conv-2"})
			So(appErrCode(err), ShouldEqual, 40001)
		})
	})
}

// TestRegenerate 测试重新生成回答
func TestRegenerate(t *testing.T) {
	Convey("重新生成测试", t, func() {
		ctx := context.Background()
		prior := []model.HistoryTurn{
			{Role: model.RoleUser, Message: "q1"},
			{Role: model.RoleAssistant, Message: "a1"},
		}
		chats := &fakeChatStore{
			chat: &model.Chat{ChatID: "chat-1", UserID: "user-1", Provider: "OPENAI", Model: "gpt-4o"},
			tip: &repository.ConversationTip{
				Conversation: &model.Conversation{ConversationID: "conv-2", ChatID: "chat-1"},
				Messages: []model.Message{
					{SenderRole: model.RoleUser, Message: "q2"},
					{SenderRole: model.RoleAssistant, Message: "a2"},
				},
			},
			prior: prior,
		}
		credits := &fakeCreditsStore{balance: d128("100")}
		dispatcher := &fakeDispatcher{result: &ai.Result{GeneratedText: "a2-regen", InputUnits: 10, OutputUnits: 20}}
		svc := newTestService(chats, credits, dispatcher)

		Convey("成功：复用原提问并置位重新生成标记", func() {
			result, err := svc.Regenerate(ctx, "user-1", &model.RegenerateRequest{
				ChatID:         "chat-1",
				ConversationID: "conv-2",
			})

			So(err, ShouldBeNil)
			So(result.ConversationID, ShouldEqual, "conv-2")
			So(result.GeneratedText, ShouldEqual, "a2-regen")

			So(dispatcher.lastReq.Regenerate, ShouldBeTrue)
			So(dispatcher.lastReq.Text, ShouldEqual, "q2")

			So(chats.regenArgs, ShouldNotBeNil)
			So(chats.regenArgs.ConversationID, ShouldEqual, "conv-2")
			So(chats.regenArgs.AssistantText, ShouldEqual, "a2-regen")
			// 快照 = 之前的消息 + 被复用的提问
			So(chats.regenArgs.History[len(chats.regenArgs.History)-1].Message, ShouldEqual, "q2")
		})

		Convey("一轮超过一问一答时拒绝再次生成", func() {
			chats.tip.Messages = append(chats.tip.Messages, model.Message{
				SenderRole: model.RoleAssistant, Message: "a2-regen",
			})
			_, err := svc.Regenerate(ctx, "user-1", &model.RegenerateRequest{
				ChatID:         "chat-1",
				ConversationID: "conv-2",
			})
			So(appErrCode(err), ShouldEqual, 40006)
			So(dispatcher.calls, ShouldEqual, 0)
		})

		Convey("过期的 conversation_id 被拒绝", func() {
			_, err := svc.Regenerate(ctx, "user-1", &model.RegenerateRequest{
				ChatID:         "chat-1",
				ConversationID: "conv-1",
			})
			So(appErrCode(err), ShouldEqual, 40004)
		})
	})
}

// TestEditTitleAndDelete 测试标题修改与软删除
func TestEditTitleAndDelete(t *testing.T) {
	Convey("标题与删除测试", t, func() {
		ctx := context.Background()
		chats := &fakeChatStore{
			chat: &model.Chat{ChatID: "chat-1", UserID: "user-1"},
		}
		credits := &fakeCreditsStore{balance: d128("100")}
		svc := newTestService(chats, credits, &fakeDispatcher{})

		Convey("标题修改成功并截断超长输入", func() {
			long := strings.Repeat("t", 300)
			result, err := svc.EditTitle(ctx, "user-1", &model.EditTitleRequest{ChatID: "chat-1", Title: long})
			So(err, ShouldBeNil)
			So(len([]rune(result.Title)), ShouldEqual, 280)
			So(chats.titleSet, ShouldEqual, result.Title)
		})

		Convey("标题必填", func() {
			_, err := svc.EditTitle(ctx, "user-1", &model.EditTitleRequest{ChatID: "chat-1"})
			So(appErrCode(err), ShouldEqual, 40001)
		})

		Convey("软删除成功", func() {
			result, err := svc.Delete(ctx, "user-1", &model.DeleteChatRequest{ChatID: "chat-1"})
			So(err, ShouldBeNil)
			So(result.Success, ShouldBeTrue)
			So(chats.deleted, ShouldBeTrue)
		})

		Convey("删除不存在的会话返回 ChatNotFound", func() {
			_, err := svc.Delete(ctx, "user-1", &model.DeleteChatRequest{ChatID: "chat-404"})
			So(appErrCode(err), ShouldEqual, 40003)
		})
	})
}

// TestGetChat 测试会话分页
func TestGetChat(t *testing.T) {
	Convey("会话分页测试", t, func() {
		ctx := context.Background()
		base := time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)

		rounds := make([]model.ConversationRound, 0, 8)
		for i := 0; i < 8; i++ {
			rounds = append(rounds, model.ConversationRound{
				ConversationID: "conv-" + strings.Repeat("x", i+1),
				CreatedAt:      base.Add(-time.Duration(i) * time.Hour),
			})
		}

		chats := &fakeChatStore{
			chat:   &model.Chat{ChatID: "chat-1", UserID: "user-1"},
			rounds: rounds,
		}
		credits := &fakeCreditsStore{balance: d128("100")}
		svc := newTestService(chats, credits, &fakeDispatcher{})

		Convey("满页时返回下一页游标", func() {
			result, err := svc.GetChat(ctx, "user-1", "chat-1", nil)
			So(err, ShouldBeNil)
			So(len(result.PreviousHistory), ShouldEqual, 5)
			So(result.NextTimestamp, ShouldNotBeNil)
			So(*result.NextTimestamp, ShouldEqual, rounds[4].CreatedAt)
		})

		Convey("末页不带游标", func() {
			cursor := rounds[4].CreatedAt
			result, err := svc.GetChat(ctx, "user-1", "chat-1", &cursor)
			So(err, ShouldBeNil)
			So(len(result.PreviousHistory), ShouldEqual, 3)
			So(result.NextTimestamp, ShouldBeNil)
		})

		Convey("chat_id 必填", func() {
			_, err := svc.GetChat(ctx, "user-1", "", nil)
			So(appErrCode(err), ShouldEqual, 40001)
		})
	})
}

// TestOverview 测试概览聚合
func TestOverview(t *testing.T) {
	Convey("概览测试", t, func() {
		ctx := context.Background()
		chats := &fakeChatStore{
			chat: &model.Chat{ChatID: "chat-1", UserID: "user-1", Title: "t", UpdatedAt: time.Now()},
		}
		credits := &fakeCreditsStore{balance: d128("42.5")}
		svc := newTestService(chats, credits, &fakeDispatcher{})

		Convey("返回余额与不含密钥的提供商目录", func() {
			result, err := svc.Overview(ctx, "user-1")
			So(err, ShouldBeNil)
			So(result.UserCredits, ShouldEqual, 42.5)
			So(len(result.Providers), ShouldEqual, 2)
			So(result.Providers[0].Name, ShouldEqual, "OpenAI")
			So(len(result.Providers[0].Models), ShouldEqual, 1)
		})

		Convey("今天更新的会话进今日桶", func() {
			result, err := svc.Overview(ctx, "user-1")
			So(err, ShouldBeNil)
			So(len(result.ChatHistory.TodayChats), ShouldEqual, 1)
			So(len(result.ChatHistory.PreviousDayChats), ShouldEqual, 0)
		})
	})
}

// TestBucketChats 测试日期分桶
func TestBucketChats(t *testing.T) {
	Convey("日期分桶测试", t, func() {
		now := time.Date(2024, 11, 15, 18, 0, 0, 0, time.UTC)
		chats := []*model.Chat{
			{ChatID: "today", UpdatedAt: time.Date(2024, 11, 15, 9, 0, 0, 0, time.UTC)},
			{ChatID: "yesterday", UpdatedAt: time.Date(2024, 11, 14, 23, 0, 0, 0, time.UTC)},
			{ChatID: "older", UpdatedAt: time.Date(2024, 11, 10, 12, 0, 0, 0, time.UTC)},
		}

		buckets := bucketChats(chats, now)
		So(len(buckets.TodayChats), ShouldEqual, 1)
		So(buckets.TodayChats[0].ChatID, ShouldEqual, "today")
		So(len(buckets.PreviousDayChats), ShouldEqual, 1)
		So(buckets.PreviousDayChats[0].ChatID, ShouldEqual, "yesterday")
		So(len(buckets.OtherChats), ShouldEqual, 1)
		So(buckets.OtherChats[0].ChatID, ShouldEqual, "older")
	})
}
