package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/codecloudhq/cloud-agents/internal/model"
)

// ChatRepo persists chats and their messages. A chat and its messages
// are deleted as a unit.
type ChatRepo struct{ DB *sql.DB }

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{DB: db} }

// CreateChat inserts a new chat owned by userID.
func (r *ChatRepo) CreateChat(ctx context.Context, userID, title, agentName string) (model.Chat, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO chats (id, user_id, title, agent_name) VALUES (?,?,?,?)",
		id, userID, title, agentName)
	if err != nil {
		return model.Chat{}, err
	}
	return r.GetChat(ctx, id)
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, id string) (model.Chat, error) {
	var c model.Chat
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,title,agent_name,created_at,updated_at FROM chats WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.UserID, &c.Title, &c.AgentName, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Chat{}, ErrNotFound
		}
		return model.Chat{}, err
	}
	return c, nil
}

// ListChats returns chat summaries for a user ordered by last activity.
// Message count and last message are resolved with correlated subqueries
// so the listing stays a single round trip.
func (r *ChatRepo) ListChats(ctx context.Context, userID string, limit, offset int) ([]model.ChatSummary, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.id, c.title, c.agent_name, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM chat_messages m WHERE m.chat_id=c.id),
			COALESCE((SELECT m.content FROM chat_messages m WHERE m.chat_id=c.id ORDER BY m.created_at DESC LIMIT 1),'')
		 FROM chats c WHERE c.user_id=?
		 ORDER BY c.updated_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ChatSummary
	for rows.Next() {
		var s model.ChatSummary
		if err := rows.Scan(&s.ChatID, &s.Title, &s.AgentName, &s.CreatedAt,
			&s.UpdatedAt, &s.MessageCount, &s.LastMessage); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountChats returns the number of chats a user owns.
func (r *ChatRepo) CountChats(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chats WHERE user_id=?", userID).Scan(&n)
	return n, err
}

// AddMessage appends a message to a chat and bumps the chat's
// updated_at so listings order by last activity.
func (r *ChatRepo) AddMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	msg.ID = uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO chat_messages (id, chat_id, role, content, agent_name, input_tokens, output_tokens)
		 VALUES (?,?,?,?,?,?,?)`,
		msg.ID, msg.ChatID, msg.Role, msg.Content, msg.AgentName, msg.InputTokens, msg.OutputTokens)
	if err != nil {
		return model.ChatMessage{}, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE chats SET updated_at=NOW() WHERE id=?", msg.ChatID); err != nil {
		return model.ChatMessage{}, err
	}
	err = r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM chat_messages WHERE id=?", msg.ID).Scan(&msg.CreatedAt)
	return msg, err
}

const messageColumns = "id,chat_id,role,content,agent_name,input_tokens,output_tokens,created_at"

// GetMessages returns messages in chronological order with pagination.
func (r *ChatRepo) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]model.ChatMessage, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM chat_messages WHERE chat_id=? ORDER BY created_at ASC LIMIT ? OFFSET ?",
		chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// RecentMessages returns the n most recent messages, most recent first.
// Callers wanting chronological order reverse the slice.
func (r *ChatRepo) RecentMessages(ctx context.Context, chatID string, n int) ([]model.ChatMessage, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM chat_messages WHERE chat_id=? ORDER BY created_at DESC LIMIT ?",
		chatID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// CountMessages returns the number of messages in a chat.
func (r *ChatRepo) CountMessages(ctx context.Context, chatID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chat_messages WHERE chat_id=?", chatID).Scan(&n)
	return n, err
}

// DeleteChat removes a chat and all of its messages in one transaction.
func (r *ChatRepo) DeleteChat(ctx context.Context, chatID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chat_messages WHERE chat_id=?", chatID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id=?", chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// UpdateTitle renames a chat.
func (r *ChatRepo) UpdateTitle(ctx context.Context, chatID, title string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE chats SET title=? WHERE id=?", title, chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetChat(ctx, chatID); err != nil {
			return err
		}
	}
	return nil
}

func collectMessages(rows *sql.Rows) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	for rows.Next() {
		var (
			m            model.ChatMessage
			agentName    sql.NullString
			inputTokens  sql.NullInt64
			outputTokens sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content,
			&agentName, &inputTokens, &outputTokens, &m.CreatedAt); err != nil {
			return nil, err
		}
		if agentName.Valid {
			m.AgentName = &agentName.String
		}
		if inputTokens.Valid {
			v := int(inputTokens.Int64)
			m.InputTokens = &v
		}
		if outputTokens.Valid {
			v := int(outputTokens.Int64)
			m.OutputTokens = &v
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
