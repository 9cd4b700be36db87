package services

import (
	"context"
	"fmt"
	"time"

	"researchdesk/internal/database"
)

// QuotaService enforces the per-user daily chat limit. The counter lives in
// user_daily_chats keyed by (user_id, chat_date) so a new calendar day simply
// starts from a fresh row.
type QuotaService struct {
	db *database.DB
}

// NewQuotaService creates a new quota service
func NewQuotaService(db *database.DB) *QuotaService {
	return &QuotaService{db: db}
}

// ReserveSlot atomically consumes one chat slot for the given day. It returns
// false when the user has already reached the limit. The check and increment
// happen in a single conditional UPDATE so concurrent requests cannot both
// claim the last slot.
func (s *QuotaService) ReserveSlot(ctx context.Context, userID string, day time.Time, limit int) (bool, error) {
	date := day.Format("2006-01-02")

	_, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO user_daily_chats (user_id, chat_date, chat_count) VALUES (?, ?, 0)
	`, userID, date)
	if err != nil {
		return false, fmt.Errorf("failed to initialize daily counter: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE user_daily_chats SET chat_count = chat_count + 1
		WHERE user_id = ? AND chat_date = ? AND chat_count < ?
	`, userID, date, limit)
	if err != nil {
		return false, fmt.Errorf("failed to reserve chat slot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read reservation result: %w", err)
	}
	return affected == 1, nil
}

// ReleaseSlot gives a reserved slot back, used when chat creation fails after
// the quota was already consumed. The counter never goes below zero.
func (s *QuotaService) ReleaseSlot(ctx context.Context, userID string, day time.Time) error {
	date := day.Format("2006-01-02")
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_daily_chats SET chat_count = chat_count - 1
		WHERE user_id = ? AND chat_date = ? AND chat_count > 0
	`, userID, date)
	if err != nil {
		return fmt.Errorf("failed to release chat slot: %w", err)
	}
	return nil
}

// CountToday returns how many chats the user has created on the given day
func (s *QuotaService) CountToday(ctx context.Context, userID string, day time.Time) (int, error) {
	date := day.Format("2006-01-02")

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(chat_count), 0) FROM user_daily_chats
		WHERE user_id = ? AND chat_date = ?
	`, userID, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count daily chats: %w", err)
	}
	return count, nil
}
