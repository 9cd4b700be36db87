package services

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors surfaced by the conversation engine and stores.
// Handlers map these onto HTTP statuses.
var (
	// ErrChatNotFound covers both a missing chat and a chat owned by another
	// user, so the API never leaks existence of other users' chats.
	ErrChatNotFound = errors.New("chat not found")

	// ErrChatClosed is returned for any submit against a completed or
	// errored chat.
	ErrChatClosed = errors.New("chat is completed or has an error")

	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound is returned when a clarification answer arrives for
	// a chat with no stored research session.
	ErrSessionNotFound = errors.New("research session not found")

	// ErrSessionMismatch is returned when client-supplied progress fields
	// disagree with the stored session.
	ErrSessionMismatch = errors.New("request does not match research session state")
)

// QuotaExceededError is returned when the daily chat creation limit is hit
type QuotaExceededError struct {
	Limit   int       `json:"limit"`
	Used    int       `json:"used"`
	ResetAt time.Time `json:"reset_at"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Daily chat limit reached. You can create %d chats per day.", e.Limit)
}
