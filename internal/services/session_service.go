package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"researchdesk/internal/database"
	"researchdesk/internal/models"
)

// SessionService is the MySQL-backed store for research sessions. The session
// is the server's record of clarification progress; clients echo progress
// fields but the stored session always wins.
type SessionService struct {
	db *database.DB
}

// NewSessionService creates a new session service
func NewSessionService(db *database.DB) *SessionService {
	return &SessionService{db: db}
}

// SaveSession creates or replaces the session for a chat
func (s *SessionService) SaveSession(ctx context.Context, session *models.ResearchSession) error {
	questions, err := json.Marshal(session.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO research_sessions (chat_id, topic, questions, answers, answered)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE topic = VALUES(topic), questions = VALUES(questions),
			answers = VALUES(answers), answered = VALUES(answered)
	`, session.ChatID, session.Topic, questions, answers, session.Answered)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindSession returns the session for a chat
func (s *SessionService) FindSession(ctx context.Context, chatID string) (*models.ResearchSession, error) {
	var (
		session   models.ResearchSession
		questions []byte
		answers   []byte
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT chat_id, topic, questions, answers, answered, created_at, updated_at
		FROM research_sessions WHERE chat_id = ?
	`, chatID)
	err := row.Scan(&session.ChatID, &session.Topic, &questions, &answers, &session.Answered, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if err := json.Unmarshal(questions, &session.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	if err := json.Unmarshal(answers, &session.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	return &session, nil
}

// RecordAnswer appends an answer to the session and advances its progress
func (s *SessionService) RecordAnswer(ctx context.Context, chatID, answer string) (*models.ResearchSession, error) {
	session, err := s.FindSession(ctx, chatID)
	if err != nil {
		return nil, err
	}

	session.Answers = append(session.Answers, answer)
	session.Answered++

	if err := s.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes the session once the dialogue is finished
func (s *SessionService) DeleteSession(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM research_sessions WHERE chat_id = ?", chatID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
