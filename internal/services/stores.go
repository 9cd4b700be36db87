package services

import (
	"context"
	"time"

	"researchdesk/internal/models"
)

// The conversation engine talks to storage through these narrow interfaces.
// ChatService, SessionService and QuotaService provide the MySQL
// implementations; tests substitute in-memory fakes.

// ChatStore persists chats
type ChatStore interface {
	CreateChat(ctx context.Context, userID, title string) (*models.Chat, error)
	FindChat(ctx context.Context, chatID string) (*models.Chat, error)
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
	UpdateTitle(ctx context.Context, chatID, title string) error
	MarkCompleted(ctx context.Context, chatID string) error
	MarkErrored(ctx context.Context, chatID string) error
}

// MessageStore persists chat messages, append-only
type MessageStore interface {
	AppendMessage(ctx context.Context, chatID, content string, isUser bool) (*models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// SessionStore persists the server-authoritative clarification session
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.ResearchSession) error
	FindSession(ctx context.Context, chatID string) (*models.ResearchSession, error)
	RecordAnswer(ctx context.Context, chatID, answer string) (*models.ResearchSession, error)
	DeleteSession(ctx context.Context, chatID string) error
}

// QuotaStore reserves daily chat slots. ReserveSlot must be atomic: with two
// concurrent calls and one slot left, exactly one call may succeed.
type QuotaStore interface {
	ReserveSlot(ctx context.Context, userID string, day time.Time, limit int) (bool, error)
	ReleaseSlot(ctx context.Context, userID string, day time.Time) error
	CountToday(ctx context.Context, userID string, day time.Time) (int, error)
}

// UserStore is the user lookup the handlers need
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ResearchProvider generates a research page from the clarified topic.
// Implementations never return transport errors past this boundary; a failed
// call yields ProviderResult{Success: false}.
type ResearchProvider interface {
	GenerateResearchPage(ctx context.Context, topic string, questions, answers []string) ProviderResult
}

// ProviderResult is the structured outcome of one provider call
type ProviderResult struct {
	Success bool
	Text    string
}
