package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"researchdesk/internal/database"
)

// RetentionCleanupJob removes rows that no live request path reads anymore:
// research sessions whose chat already reached a terminal state, and daily
// quota counters older than the retention window.
type RetentionCleanupJob struct {
	db              *database.DB
	quotaRetainDays int
}

// NewRetentionCleanupJob creates a new retention cleanup job
func NewRetentionCleanupJob(db *database.DB) *RetentionCleanupJob {
	return &RetentionCleanupJob{db: db, quotaRetainDays: 30}
}

// Run executes one cleanup pass
func (j *RetentionCleanupJob) Run(ctx context.Context) error {
	log.Println("[RETENTION] Starting retention cleanup...")
	startTime := time.Now()

	sessions, err := j.cleanupOrphanedSessions(ctx)
	if err != nil {
		return fmt.Errorf("session cleanup failed: %w", err)
	}

	counters, err := j.cleanupOldQuotaCounters(ctx)
	if err != nil {
		return fmt.Errorf("quota counter cleanup failed: %w", err)
	}

	log.Printf("[RETENTION] Cleanup complete: %d sessions, %d quota counters removed in %v",
		sessions, counters, time.Since(startTime))
	return nil
}

// GetNextRunTime schedules the job daily at 03:00 server time
func (j *RetentionCleanupJob) GetNextRunTime() time.Time {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// cleanupOrphanedSessions deletes sessions whose chat is completed or errored.
// Sessions are normally deleted on completion; this catches chats that went
// terminal through the error path.
func (j *RetentionCleanupJob) cleanupOrphanedSessions(ctx context.Context) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
		DELETE rs FROM research_sessions rs
		JOIN chats c ON c.id = rs.chat_id
		WHERE c.is_completed = TRUE OR c.has_error = TRUE
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (j *RetentionCleanupJob) cleanupOldQuotaCounters(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.quotaRetainDays).Format("2006-01-02")
	res, err := j.db.ExecContext(ctx, "DELETE FROM user_daily_chats WHERE chat_date < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
