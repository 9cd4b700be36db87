package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"researchdesk/internal/config"
	"researchdesk/internal/middleware"
	"researchdesk/internal/models"
	"researchdesk/internal/services"
)

// ResearchEngine runs the clarification dialogue. ResearchService implements
// it; tests substitute a fake.
type ResearchEngine interface {
	SubmitTopic(ctx context.Context, userID, chatID, message string) (*models.ResearchTopicResponse, error)
	SubmitAnswer(ctx context.Context, userID, chatID string, req *models.ClarificationAnswerRequest) (*models.ClarificationAnswerResponse, error)
}

// ChatHandler handles chat CRUD and the research dialogue endpoints
type ChatHandler struct {
	cfg      *config.Config
	chats    services.ChatStore
	messages services.MessageStore
	quota    services.QuotaStore
	research ResearchEngine
	users    services.UserStore
	metrics  *services.Metrics
}

// NewChatHandler creates a new chat handler
func NewChatHandler(cfg *config.Config, chats services.ChatStore, messages services.MessageStore, quota services.QuotaStore, research ResearchEngine, users services.UserStore, metrics *services.Metrics) *ChatHandler {
	return &ChatHandler{
		cfg:      cfg,
		chats:    chats,
		messages: messages,
		quota:    quota,
		research: research,
		users:    users,
		metrics:  metrics,
	}
}

// List returns all chats of the current user, newest first
// GET /api/chats
func (h *ChatHandler) List(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	chats, err := h.chats.ListChats(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to list chats for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch chats",
		})
	}

	return c.JSON(fiber.Map{"success": true, "chats": chats})
}

// Create creates a new chat, consuming one daily quota slot
// POST /api/chats
func (h *ChatHandler) Create(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req models.CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	user, err := h.users.FindByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "User not found",
			})
		}
		log.Printf("❌ User lookup failed for %s: %v", userID, err)
		return internalError(c)
	}

	limit := h.cfg.ChatLimit(user.IsPremium)
	// Quota days are UTC days
	now := time.Now().UTC()

	reserved, err := h.quota.ReserveSlot(c.Context(), userID, now, limit)
	if err != nil {
		log.Printf("❌ Quota reservation failed for %s: %v", userID, err)
		return internalError(c)
	}
	if !reserved {
		if h.metrics != nil {
			h.metrics.QuotaRejected.Inc()
		}
		used, _ := h.quota.CountToday(c.Context(), userID, now)
		quotaErr := &services.QuotaExceededError{Limit: limit, Used: used}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   quotaErr.Error(),
		})
	}

	chat, err := h.chats.CreateChat(c.Context(), userID, req.Title)
	if err != nil {
		// Slot was consumed but the chat never existed, hand it back
		if relErr := h.quota.ReleaseSlot(c.Context(), userID, now); relErr != nil {
			log.Printf("⚠️ Failed to release quota slot for %s: %v", userID, relErr)
		}
		log.Printf("❌ Chat creation failed for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to create chat",
		})
	}

	if h.metrics != nil {
		h.metrics.ChatsCreated.Inc()
	}
	log.Printf("✅ Chat created: %s for user %s", chat.ID, userID)
	return c.JSON(fiber.Map{"success": true, "chat": chat})
}

// Get returns one chat owned by the current user
// GET /api/chats/:chatId
func (h *ChatHandler) Get(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	chatID := c.Params("chatId")

	chat, err := h.chats.FindChat(c.Context(), chatID)
	if err != nil && !errors.Is(err, services.ErrChatNotFound) {
		log.Printf("❌ Chat lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch chat info",
		})
	}
	if chat == nil || chat.UserID != userID {
		return chatNotFound(c)
	}

	return c.JSON(fiber.Map{"success": true, "chat": chat})
}

// Messages returns the messages of a chat in conversation order
// GET /api/chats/:chatId/messages
func (h *ChatHandler) Messages(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	chatID := c.Params("chatId")

	chat, err := h.chats.FindChat(c.Context(), chatID)
	if err != nil && !errors.Is(err, services.ErrChatNotFound) {
		log.Printf("❌ Chat lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch messages",
		})
	}
	if chat == nil || chat.UserID != userID {
		return chatNotFound(c)
	}

	messages, err := h.messages.ListMessages(c.Context(), chatID)
	if err != nil {
		log.Printf("❌ Failed to list messages for chat %s: %v", chatID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch messages",
		})
	}

	return c.JSON(fiber.Map{"success": true, "messages": messages})
}

// ResearchTopic submits the research topic and returns clarifying questions
// POST /api/chats/:chatId/research-topic
func (h *ChatHandler) ResearchTopic(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	chatID := c.Params("chatId")

	var req models.ResearchTopicRequest
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Message is required",
		})
	}

	resp, err := h.research.SubmitTopic(c.Context(), userID, chatID, req.Message)
	if err != nil {
		return h.researchError(c, "Failed to process research topic", err)
	}
	return c.JSON(resp)
}

// ClarificationAnswer submits one clarifying answer; the final answer
// triggers report generation
// POST /api/chats/:chatId/clarification-answer
func (h *ChatHandler) ClarificationAnswer(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	chatID := c.Params("chatId")

	var req models.ClarificationAnswerRequest
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Message is required",
		})
	}

	resp, err := h.research.SubmitAnswer(c.Context(), userID, chatID, &req)
	if err != nil {
		return h.researchError(c, "Failed to process clarification answer", err)
	}
	if resp.MessageType == models.MessageTypeResearchPages {
		// geminiResearch must be present even when null
		return c.JSON(models.ResearchPagesResponse{
			Success:        resp.Success,
			MessageType:    resp.MessageType,
			OpenAIResearch: resp.OpenAIResearch,
			GeminiResearch: resp.GeminiResearch,
		})
	}
	return c.JSON(resp)
}

func (h *ChatHandler) researchError(c *fiber.Ctx, fallback string, err error) error {
	switch {
	case errors.Is(err, services.ErrChatNotFound):
		return chatNotFound(c)
	case errors.Is(err, services.ErrChatClosed):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "This chat is completed or has an error. Please start a new chat.",
		})
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No research session found for this chat. Submit a research topic first.",
		})
	case errors.Is(err, services.ErrSessionMismatch):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "Request does not match the current research session state.",
		})
	default:
		log.Printf("❌ %s: %v", fallback, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   fallback,
		})
	}
}

func chatNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"error":   "Chat not found",
	})
}
