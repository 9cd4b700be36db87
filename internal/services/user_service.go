package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"researchdesk/internal/database"
	"researchdesk/internal/models"
)

// UserService handles user operations
type UserService struct {
	db *database.DB
}

// NewUserService creates a new user service
func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = "id, username, email, password_hash, is_premium, created_at, updated_at"

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsPremium, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user
func (s *UserService) Create(ctx context.Context, username, email, passwordHash string, isPremium bool) (*models.User, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, is_premium)
		VALUES (?, ?, ?, ?, ?)
	`, id, username, email, passwordHash, isPremium)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("✅ Created user %s (%s)", username, id)
	return s.FindByID(ctx, id)
}

// FindByID returns a user by ID
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// FindByUsername returns a user by username, or nil if none exists
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// FindByEmail returns a user by email, or nil if none exists
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// TouchLastLogin bumps the user's updated_at timestamp on login
func (s *UserService) TouchLastLogin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

var usernameSanitizer = regexp.MustCompile(`[^a-z0-9_]`)

// ToBaseUsername converts a display name into a base username: lowercase,
// spaces to underscores, non [a-z0-9_] stripped, capped at 20 characters.
func ToBaseUsername(name string) string {
	raw := strings.ToLower(strings.TrimSpace(name))
	sanitized := strings.ReplaceAll(raw, " ", "_")
	sanitized = usernameSanitizer.ReplaceAllString(sanitized, "")
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if len(sanitized) > 20 {
		sanitized = sanitized[:20]
	}
	if sanitized == "" {
		sanitized = "user"
	}
	return sanitized
}

// GenerateUniqueUsername builds a unique username for new OAuth users.
// Tries base_suffix with random suffixes, falls back to base_timestamp.
func (s *UserService) GenerateUniqueUsername(ctx context.Context, displayName string) (string, error) {
	base := ToBaseUsername(displayName)

	for i := 0; i < 10; i++ {
		candidate := fmt.Sprintf("%s_%06d", base, rand.Intn(1000000))
		existing, err := s.FindByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
	}

	return fmt.Sprintf("%s_%d", base, time.Now().UnixMilli()), nil
}
