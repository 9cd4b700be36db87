package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"researchdesk/internal/config"
	"researchdesk/internal/middleware"
	"researchdesk/internal/models"
	"researchdesk/internal/services"
)

// UserHandler exposes per-user account information
type UserHandler struct {
	cfg   *config.Config
	users services.UserStore
	quota services.QuotaStore
}

// NewUserHandler creates a new user handler
func NewUserHandler(cfg *config.Config, users services.UserStore, quota services.QuotaStore) *UserHandler {
	return &UserHandler{cfg: cfg, users: users, quota: quota}
}

// ChatCount reports today's chat usage against the user's daily limit
// GET /api/user/chat-count
func (h *UserHandler) ChatCount(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	user, err := h.users.FindByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized",
			})
		}
		log.Printf("❌ User lookup failed for %s: %v", userID, err)
		return internalError(c)
	}

	todayCount, err := h.quota.CountToday(c.Context(), userID, time.Now().UTC())
	if err != nil {
		log.Printf("❌ Failed to count chats for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to get chat count",
		})
	}

	return c.JSON(models.ChatCountResponse{
		Success:    true,
		TodayCount: todayCount,
		MaxChats:   h.cfg.ChatLimit(user.IsPremium),
		IsPremium:  user.IsPremium,
	})
}
