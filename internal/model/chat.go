package model

import "time"

// Chat groups an ordered sequence of messages owned by one user.
type Chat struct {
	ID        string
	UserID    string
	Title     string
	AgentName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is a single message inside a chat. Token counts are only
// present on assistant messages and may be estimates depending on the
// provider.
type ChatMessage struct {
	ID           string
	ChatID       string
	Role         string // "user" or "assistant"
	Content      string
	AgentName    *string
	InputTokens  *int
	OutputTokens *int
	CreatedAt    time.Time
}

// ChatSummary is the listing shape for a user's chats.
type ChatSummary struct {
	ChatID       string    `json:"chatId"`
	Title        string    `json:"title"`
	AgentName    string    `json:"agentName"`
	MessageCount int       `json:"messageCount"`
	LastMessage  string    `json:"lastMessage"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
