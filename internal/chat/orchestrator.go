package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codecloudhq/cloud-agents/internal/billing"
	"github.com/codecloudhq/cloud-agents/internal/model"
	"github.com/codecloudhq/cloud-agents/internal/repository"
)

// ErrUnknownProvider is returned when a request names a provider no
// backend is registered for.
var ErrUnknownProvider = errors.New("unknown model provider")

// ErrDemoBlocked is returned when a blocked or deactivated demo
// account tries to chat.
var ErrDemoBlocked = errors.New("demo account blocked")

// ErrDemoLimitReached is returned when a demo account has exhausted
// its message or credit allowance.
var ErrDemoLimitReached = errors.New("demo limit reached")

// chatStore is the transcript persistence the orchestrator needs.
// *repository.ChatRepo satisfies it; tests substitute fakes.
type chatStore interface {
	CreateChat(ctx context.Context, userID, title, agentName string) (model.Chat, error)
	GetChat(ctx context.Context, id string) (model.Chat, error)
	ListChats(ctx context.Context, userID string, limit, offset int) ([]model.ChatSummary, error)
	CountChats(ctx context.Context, userID string) (int, error)
	AddMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error)
	GetMessages(ctx context.Context, chatID string, limit, offset int) ([]model.ChatMessage, error)
	RecentMessages(ctx context.Context, chatID string, n int) ([]model.ChatMessage, error)
	CountMessages(ctx context.Context, chatID string) (int, error)
	DeleteChat(ctx context.Context, chatID string) error
	UpdateTitle(ctx context.Context, chatID, title string) error
}

// costStore records token consumption. *repository.CostRepo satisfies it.
type costStore interface {
	Insert(ctx context.Context, e model.CostLogEntry) error
}

// demoStore enforces demo account allowances. *repository.InviteRepo
// satisfies it.
type demoStore interface {
	GetDemoUser(ctx context.Context, userID string) (model.DemoUser, error)
	AddUsage(ctx context.Context, userID string, costUSD float64, messages int) error
}

// Orchestrator routes chat requests: transcript handling, prompt
// construction, model selection, provider dispatch and cost logging.
type Orchestrator struct {
	chats     chatStore
	costs     costStore
	demos     demoStore
	providers map[string]Provider
}

func NewOrchestrator(chats chatStore, costs costStore, demos demoStore, providers ...Provider) *Orchestrator {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Orchestrator{chats: chats, costs: costs, demos: demos, providers: byName}
}

// Request is one user message headed for a model.
type Request struct {
	UserID         string
	Role           string
	ChatID         string // empty starts a new chat
	Message        string
	AgentName      string
	Model          string // empty lets the selector decide
	Provider       string
	IncludeHistory bool
	MaxHistory     int
}

// TokenUsage reports token consumption of one exchange.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Response is the envelope returned for a sent message.
type Response struct {
	ChatID    string       `json:"chatId"`
	MessageID string       `json:"messageId"`
	AgentName string       `json:"agentName"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	Tokens    TokenUsage   `json:"tokens"`
	Cost      billing.Cost `json:"cost"`
}

// SendMessage runs the full exchange: resolve or create the chat,
// store the user message, build the prompt, dispatch to the provider,
// store the reply and log the cost. Demo allowances are checked before
// dispatch and charged after.
func (o *Orchestrator) SendMessage(ctx context.Context, req Request) (Response, error) {
	demo, err := o.checkDemoAllowance(ctx, req)
	if err != nil {
		return Response{}, err
	}

	var chat model.Chat
	if req.ChatID != "" {
		chat, err = o.chats.GetChat(ctx, req.ChatID)
		if err != nil {
			return Response{}, err
		}
		if chat.UserID != req.UserID {
			return Response{}, repository.ErrForbidden
		}
	} else {
		chat, err = o.chats.CreateChat(ctx, req.UserID, generateTitle(req.Message), req.AgentName)
		if err != nil {
			return Response{}, err
		}
	}

	if _, err := o.chats.AddMessage(ctx, model.ChatMessage{
		ChatID:  chat.ID,
		Role:    "user",
		Content: req.Message,
	}); err != nil {
		return Response{}, err
	}

	var history []model.ChatMessage
	if req.IncludeHistory {
		n := req.MaxHistory
		if n <= 0 {
			n = 10
		}
		history, err = o.chats.RecentMessages(ctx, chat.ID, n)
		if err != nil {
			return Response{}, err
		}
	}

	rec := billing.SelectModel(req.Message, billing.SelectionOptions{})
	modelName, providerName := req.Model, req.Provider
	if modelName == "" {
		modelName = rec.Model
	}
	if providerName == "" {
		providerName = rec.Provider
	}
	provider, ok := o.providers[strings.ToLower(providerName)]
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}

	system := fmt.Sprintf("You are %s, a helpful AI assistant.", req.AgentName)
	prompt := buildPrompt(req.Message, history, req.AgentName)

	completion, err := provider.Complete(ctx, modelName, system, prompt)
	if err != nil {
		return Response{}, err
	}

	assistant, err := o.chats.AddMessage(ctx, model.ChatMessage{
		ChatID:       chat.ID,
		Role:         "assistant",
		Content:      completion.Text,
		AgentName:    &req.AgentName,
		InputTokens:  &completion.InputTokens,
		OutputTokens: &completion.OutputTokens,
	})
	if err != nil {
		return Response{}, err
	}

	cost := billing.Estimate(providerName, modelName, completion.InputTokens, completion.OutputTokens)
	if err := o.costs.Insert(ctx, model.CostLogEntry{
		UserID:       req.UserID,
		TaskID:       chat.ID,
		Model:        modelName,
		Provider:     providerName,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
	}); err != nil {
		return Response{}, err
	}
	if demo != nil {
		if err := o.demos.AddUsage(ctx, req.UserID, cost.USD, 1); err != nil {
			return Response{}, err
		}
	}

	return Response{
		ChatID:    chat.ID,
		MessageID: assistant.ID,
		AgentName: req.AgentName,
		Content:   completion.Text,
		Timestamp: assistant.CreatedAt,
		Tokens: TokenUsage{
			Input:  completion.InputTokens,
			Output: completion.OutputTokens,
			Total:  completion.InputTokens + completion.OutputTokens,
		},
		Cost: cost,
	}, nil
}

// checkDemoAllowance verifies a demo account may still chat. The
// returned pointer is non-nil for demo users so the caller knows to
// charge usage afterwards.
func (o *Orchestrator) checkDemoAllowance(ctx context.Context, req Request) (*model.DemoUser, error) {
	if req.Role != model.RoleDemo {
		return nil, nil
	}
	demo, err := o.demos.GetDemoUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if demo.Blocked || !demo.Active {
		return nil, ErrDemoBlocked
	}
	if time.Now().After(demo.ExpiresAt) {
		return nil, ErrDemoBlocked
	}
	if demo.MessagesUsed >= demo.MaxMessages || demo.CreditUsedUSD >= demo.CreditLimitUSD {
		return nil, ErrDemoLimitReached
	}
	return &demo, nil
}

// HistoryPage is a paginated slice of one chat's transcript.
type HistoryPage struct {
	ChatID   string              `json:"chatId"`
	Messages []model.ChatMessage `json:"messages"`
	Total    int                 `json:"total"`
	HasMore  bool                `json:"hasMore"`
}

// History returns a chat's messages in chronological order. Only the
// chat's owner may read it.
func (o *Orchestrator) History(ctx context.Context, userID, chatID string, limit, offset int) (HistoryPage, error) {
	if err := o.authorize(ctx, userID, chatID); err != nil {
		return HistoryPage{}, err
	}
	if limit <= 0 {
		limit = 50
	}
	messages, err := o.chats.GetMessages(ctx, chatID, limit, offset)
	if err != nil {
		return HistoryPage{}, err
	}
	total, err := o.chats.CountMessages(ctx, chatID)
	if err != nil {
		return HistoryPage{}, err
	}
	return HistoryPage{
		ChatID:   chatID,
		Messages: messages,
		Total:    total,
		HasMore:  offset+len(messages) < total,
	}, nil
}

// ChatPage is a paginated listing of a user's chats.
type ChatPage struct {
	Chats    []model.ChatSummary `json:"chats"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

// ListChats pages through a user's chats, most recently active first.
func (o *Orchestrator) ListChats(ctx context.Context, userID string, page, pageSize int) (ChatPage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	chats, err := o.chats.ListChats(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return ChatPage{}, err
	}
	total, err := o.chats.CountChats(ctx, userID)
	if err != nil {
		return ChatPage{}, err
	}
	return ChatPage{Chats: chats, Total: total, Page: page, PageSize: pageSize}, nil
}

// DeleteChat removes a chat and its messages. Owner only.
func (o *Orchestrator) DeleteChat(ctx context.Context, userID, chatID string) error {
	if err := o.authorize(ctx, userID, chatID); err != nil {
		return err
	}
	return o.chats.DeleteChat(ctx, chatID)
}

// RenameChat updates a chat's title. Owner only.
func (o *Orchestrator) RenameChat(ctx context.Context, userID, chatID, title string) error {
	if err := o.authorize(ctx, userID, chatID); err != nil {
		return err
	}
	return o.chats.UpdateTitle(ctx, chatID, title)
}

func (o *Orchestrator) authorize(ctx context.Context, userID, chatID string) error {
	chat, err := o.chats.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.UserID != userID {
		return repository.ErrForbidden
	}
	return nil
}

// generateTitle derives a chat title from the first message: the first
// fifty characters, with an ellipsis when truncated.
func generateTitle(message string) string {
	// Truncate on runes, not bytes, so multibyte text keeps a valid title.
	runes := []rune(message)
	if len(runes) <= 50 {
		return message
	}
	return string(runes[:50]) + "..."
}

// buildPrompt flattens the recent history into a plain-text transcript
// ending with the current message. History arrives most recent first
// and is replayed in chronological order.
func buildPrompt(message string, history []model.ChatMessage, agentName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a helpful AI assistant.\n\n", agentName)

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for i := len(history) - 1; i >= 0; i-- {
			msg := history[i]
			switch msg.Role {
			case "user":
				fmt.Fprintf(&b, "User: %s\n", msg.Content)
			case "assistant":
				name := "Assistant"
				if msg.AgentName != nil && *msg.AgentName != "" {
					name = *msg.AgentName
				}
				fmt.Fprintf(&b, "%s: %s\n", name, msg.Content)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\n", message)
	fmt.Fprintf(&b, "%s: ", agentName)
	return b.String()
}
