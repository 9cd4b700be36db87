package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"researchdesk/internal/database"
	"researchdesk/internal/models"
)

// ChatService is the MySQL-backed store for chats and messages
type ChatService struct {
	db *database.DB
}

// NewChatService creates a new chat service
func NewChatService(db *database.DB) *ChatService {
	return &ChatService{db: db}
}

const chatColumns = "id, user_id, title, is_completed, has_error, created_at, updated_at"

func scanChat(row *sql.Row) (*models.Chat, error) {
	var c models.Chat
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.IsCompleted, &c.HasError, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChat inserts a new open chat
func (s *ChatService) CreateChat(ctx context.Context, userID, title string) (*models.Chat, error) {
	if title == "" {
		title = "New Chat"
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (id, user_id, title) VALUES (?, ?, ?)
	`, id, userID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	return s.FindChat(ctx, id)
}

// FindChat returns a chat by ID
func (s *ChatService) FindChat(ctx context.Context, chatID string) (*models.Chat, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+chatColumns+" FROM chats WHERE id = ?", chatID)
	chat, err := scanChat(row)
	if err == sql.ErrNoRows {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chat: %w", err)
	}
	return chat, nil
}

// ListChats returns all chats for a user, newest first
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chatColumns+` FROM chats WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.IsCompleted, &c.HasError, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}

	return chats, rows.Err()
}

// UpdateTitle renames a chat
func (s *ChatService) UpdateTitle(ctx context.Context, chatID, title string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chats SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, title, chatID)
	if err != nil {
		return fmt.Errorf("failed to update chat title: %w", err)
	}
	return nil
}

// MarkCompleted moves a chat to the completed terminal state.
// The single UPDATE clears has_error so the flags can never both be set.
func (s *ChatService) MarkCompleted(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chats SET is_completed = TRUE, has_error = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, chatID)
	if err != nil {
		return fmt.Errorf("failed to mark chat completed: %w", err)
	}
	return nil
}

// MarkErrored moves a chat to the errored terminal state
func (s *ChatService) MarkErrored(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chats SET has_error = TRUE, is_completed = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, chatID)
	if err != nil {
		return fmt.Errorf("failed to mark chat errored: %w", err)
	}
	return nil
}

// AppendMessage appends a message to a chat. Ordering is by the seq column,
// assigned by the database, so persistence order is total even within the
// same timestamp.
func (s *ChatService) AppendMessage(ctx context.Context, chatID, content string, isUser bool) (*models.Message, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, content, is_user) VALUES (?, ?, ?, ?)
	`, id, chatID, content, isUser)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	var m models.Message
	row := s.db.QueryRowContext(ctx, `
		SELECT id, chat_id, content, is_user, seq, created_at FROM messages WHERE id = ?
	`, id)
	if err := row.Scan(&m.ID, &m.ChatID, &m.Content, &m.IsUser, &m.Seq, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to read back message: %w", err)
	}

	return &m, nil
}

// ListMessages returns all messages in a chat in persistence order
func (s *ChatService) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, content, is_user, seq, created_at
		FROM messages WHERE chat_id = ? ORDER BY seq ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Content, &m.IsUser, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
