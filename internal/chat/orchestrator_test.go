package chat

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecloudhq/cloud-agents/internal/model"
	"github.com/codecloudhq/cloud-agents/internal/repository"
)

// fakeChatStore keeps transcripts in memory in insertion order.
type fakeChatStore struct {
	chats    map[string]model.Chat
	messages map[string][]model.ChatMessage
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		chats:    map[string]model.Chat{},
		messages: map[string][]model.ChatMessage{},
	}
}

func (s *fakeChatStore) CreateChat(_ context.Context, userID, title, agentName string) (model.Chat, error) {
	c := model.Chat{ID: uuid.NewString(), UserID: userID, Title: title, AgentName: agentName, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.chats[c.ID] = c
	return c, nil
}

func (s *fakeChatStore) GetChat(_ context.Context, id string) (model.Chat, error) {
	c, ok := s.chats[id]
	if !ok {
		return model.Chat{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *fakeChatStore) ListChats(_ context.Context, userID string, limit, offset int) ([]model.ChatSummary, error) {
	var out []model.ChatSummary
	for _, c := range s.chats {
		if c.UserID == userID {
			out = append(out, model.ChatSummary{ChatID: c.ID, Title: c.Title, AgentName: c.AgentName, MessageCount: len(s.messages[c.ID])})
		}
	}
	return out, nil
}

func (s *fakeChatStore) CountChats(_ context.Context, userID string) (int, error) {
	n := 0
	for _, c := range s.chats {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *fakeChatStore) AddMessage(_ context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], msg)
	return msg, nil
}

func (s *fakeChatStore) GetMessages(_ context.Context, chatID string, limit, offset int) ([]model.ChatMessage, error) {
	msgs := s.messages[chatID]
	if offset >= len(msgs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[offset:end], nil
}

func (s *fakeChatStore) RecentMessages(_ context.Context, chatID string, n int) ([]model.ChatMessage, error) {
	msgs := s.messages[chatID]
	var out []model.ChatMessage
	for i := len(msgs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

func (s *fakeChatStore) CountMessages(_ context.Context, chatID string) (int, error) {
	return len(s.messages[chatID]), nil
}

func (s *fakeChatStore) DeleteChat(_ context.Context, chatID string) error {
	if _, ok := s.chats[chatID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.chats, chatID)
	delete(s.messages, chatID)
	return nil
}

func (s *fakeChatStore) UpdateTitle(_ context.Context, chatID, title string) error {
	c, ok := s.chats[chatID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Title = title
	s.chats[chatID] = c
	return nil
}

type fakeCostStore struct{ entries []model.CostLogEntry }

func (s *fakeCostStore) Insert(_ context.Context, e model.CostLogEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

type fakeDemoStore struct {
	demo    model.DemoUser
	charged float64
}

func (s *fakeDemoStore) GetDemoUser(_ context.Context, userID string) (model.DemoUser, error) {
	if s.demo.UserID != userID {
		return model.DemoUser{}, repository.ErrNotFound
	}
	return s.demo, nil
}

func (s *fakeDemoStore) AddUsage(_ context.Context, _ string, costUSD float64, _ int) error {
	s.charged += costUSD
	return nil
}

// fakeProvider echoes a canned reply and captures the prompt it got.
type fakeProvider struct {
	name       string
	reply      Completion
	lastModel  string
	lastPrompt string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(_ context.Context, model, _, prompt string) (Completion, error) {
	p.lastModel = model
	p.lastPrompt = prompt
	return p.reply, nil
}

func newTestOrchestrator(demo *fakeDemoStore) (*Orchestrator, *fakeChatStore, *fakeCostStore, *fakeProvider) {
	chats := newFakeChatStore()
	costs := &fakeCostStore{}
	if demo == nil {
		demo = &fakeDemoStore{}
	}
	provider := &fakeProvider{
		name:  "anthropic",
		reply: Completion{Text: "certainly", InputTokens: 100, OutputTokens: 50},
	}
	return NewOrchestrator(chats, costs, demo, provider), chats, costs, provider
}

func TestSendMessageCreatesChatAndLogsCost(t *testing.T) {
	o, chats, costs, provider := newTestOrchestrator(nil)
	ctx := context.Background()

	resp, err := o.SendMessage(ctx, Request{
		UserID:    "u1",
		Role:      model.RoleUser,
		Message:   "hello there, what is a turbine and how does it work",
		AgentName: "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "certainly", resp.Content)
	assert.Equal(t, 150, resp.Tokens.Total)
	assert.Greater(t, resp.Cost.USD, 0.0)

	// The title is the first fifty characters plus an ellipsis.
	chat := chats.chats[resp.ChatID]
	assert.Equal(t, "hello there, what is a turbine and how does it wor...", chat.Title)

	// Both sides of the exchange were stored.
	msgs := chats.messages[resp.ChatID]
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	require.NotNil(t, msgs[1].InputTokens)
	assert.Equal(t, 100, *msgs[1].InputTokens)

	// The selector routed to anthropic with the default model.
	assert.Equal(t, "claude-3-5-sonnet-20241022", provider.lastModel)

	require.Len(t, costs.entries, 1)
	assert.Equal(t, resp.ChatID, costs.entries[0].TaskID)
	assert.Equal(t, "anthropic", costs.entries[0].Provider)
}

func TestSendMessageIncludesHistoryChronologically(t *testing.T) {
	o, chats, _, provider := newTestOrchestrator(nil)
	ctx := context.Background()

	chat, err := chats.CreateChat(ctx, "u1", "older chat", "Ada")
	require.NoError(t, err)
	agent := "Ada"
	_, err = chats.AddMessage(ctx, model.ChatMessage{ChatID: chat.ID, Role: "user", Content: "first question"})
	require.NoError(t, err)
	_, err = chats.AddMessage(ctx, model.ChatMessage{ChatID: chat.ID, Role: "assistant", Content: "first answer", AgentName: &agent})
	require.NoError(t, err)

	_, err = o.SendMessage(ctx, Request{
		UserID:         "u1",
		Role:           model.RoleUser,
		ChatID:         chat.ID,
		Message:        "second question",
		AgentName:      "Ada",
		IncludeHistory: true,
	})
	require.NoError(t, err)

	// History replays oldest first, then the current message closes the
	// prompt.
	first := strings.Index(provider.lastPrompt, "first question")
	answer := strings.Index(provider.lastPrompt, "Ada: first answer")
	second := strings.LastIndex(provider.lastPrompt, "User: second question")
	require.True(t, first >= 0 && answer >= 0 && second >= 0, provider.lastPrompt)
	assert.Less(t, first, answer)
	assert.Less(t, answer, second)
	assert.True(t, strings.HasSuffix(provider.lastPrompt, "Ada: "))
}

func TestSendMessageForeignChatForbidden(t *testing.T) {
	o, chats, _, _ := newTestOrchestrator(nil)
	ctx := context.Background()

	chat, err := chats.CreateChat(ctx, "owner", "private", "Ada")
	require.NoError(t, err)

	_, err = o.SendMessage(ctx, Request{
		UserID: "intruder", Role: model.RoleUser, ChatID: chat.ID, Message: "hi", AgentName: "Ada",
	})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestSendMessageUnknownProvider(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(nil)

	_, err := o.SendMessage(context.Background(), Request{
		UserID: "u1", Role: model.RoleUser, Message: "hi", AgentName: "Ada", Provider: "mystery",
	})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestSendMessageDemoLimits(t *testing.T) {
	base := model.DemoUser{
		UserID:         "d1",
		CreditLimitUSD: 1,
		MaxMessages:    10,
		ExpiresAt:      time.Now().Add(time.Hour),
		Active:         true,
	}
	req := Request{UserID: "d1", Role: model.RoleDemo, Message: "hi", AgentName: "Ada"}

	t.Run("within allowance charges usage", func(t *testing.T) {
		demo := &fakeDemoStore{demo: base}
		o, _, _, _ := newTestOrchestrator(demo)

		resp, err := o.SendMessage(context.Background(), req)
		require.NoError(t, err)
		assert.InDelta(t, resp.Cost.USD, demo.charged, 1e-12)
	})

	t.Run("message allowance exhausted", func(t *testing.T) {
		d := base
		d.MessagesUsed = 10
		o, _, _, _ := newTestOrchestrator(&fakeDemoStore{demo: d})

		_, err := o.SendMessage(context.Background(), req)
		assert.ErrorIs(t, err, ErrDemoLimitReached)
	})

	t.Run("credit exhausted", func(t *testing.T) {
		d := base
		d.CreditUsedUSD = 1
		o, _, _, _ := newTestOrchestrator(&fakeDemoStore{demo: d})

		_, err := o.SendMessage(context.Background(), req)
		assert.ErrorIs(t, err, ErrDemoLimitReached)
	})

	t.Run("blocked account", func(t *testing.T) {
		d := base
		d.Blocked = true
		o, _, _, _ := newTestOrchestrator(&fakeDemoStore{demo: d})

		_, err := o.SendMessage(context.Background(), req)
		assert.ErrorIs(t, err, ErrDemoBlocked)
	})

	t.Run("expired account", func(t *testing.T) {
		d := base
		d.ExpiresAt = time.Now().Add(-time.Minute)
		o, _, _, _ := newTestOrchestrator(&fakeDemoStore{demo: d})

		_, err := o.SendMessage(context.Background(), req)
		assert.ErrorIs(t, err, ErrDemoBlocked)
	})
}

func TestHistoryPagination(t *testing.T) {
	o, chats, _, _ := newTestOrchestrator(nil)
	ctx := context.Background()

	chat, err := chats.CreateChat(ctx, "u1", "t", "Ada")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = chats.AddMessage(ctx, model.ChatMessage{ChatID: chat.ID, Role: "user", Content: "m"})
		require.NoError(t, err)
	}

	page, err := o.History(ctx, "u1", chat.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)

	last, err := o.History(ctx, "u1", chat.ID, 2, 4)
	require.NoError(t, err)
	assert.Len(t, last.Messages, 1)
	assert.False(t, last.HasMore)

	_, err = o.History(ctx, "someone-else", chat.ID, 2, 0)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestGenerateTitle(t *testing.T) {
	assert.Equal(t, "short", generateTitle("short"))
	long := strings.Repeat("x", 60)
	assert.Equal(t, strings.Repeat("x", 50)+"...", generateTitle(long))
	exact := strings.Repeat("x", 50)
	assert.Equal(t, exact, generateTitle(exact))
}

func TestGenerateTitleMultibyte(t *testing.T) {
	long := strings.Repeat("ü", 60)
	title := generateTitle(long)
	assert.Equal(t, strings.Repeat("ü", 50)+"...", title)
	assert.True(t, utf8.ValidString(title))
}
