package handlers

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"researchdesk/internal/middleware"
	"researchdesk/internal/models"
	"researchdesk/internal/services"
)

var questionLinePattern = regexp.MustCompile(`^\d+\.\s`)

// EmailHandler emails the finished research report to the chat owner
type EmailHandler struct {
	chats       *services.ChatService
	userService *services.UserService
	email       *services.EmailService
	gemini      *services.GeminiService
	metrics     *services.Metrics
}

// NewEmailHandler creates a new email handler
func NewEmailHandler(chats *services.ChatService, userService *services.UserService, email *services.EmailService, gemini *services.GeminiService, metrics *services.Metrics) *EmailHandler {
	return &EmailHandler{
		chats:       chats,
		userService: userService,
		email:       email,
		gemini:      gemini,
		metrics:     metrics,
	}
}

// SendReport sends the combined research report to the user's email address
// POST /api/chats/:chatId/send-email
func (h *EmailHandler) SendReport(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	chatID := c.Params("chatId")

	chat, err := h.chats.FindChat(c.Context(), chatID)
	if err != nil && !errors.Is(err, services.ErrChatNotFound) {
		log.Printf("❌ Chat lookup failed: %v", err)
		return internalError(c)
	}
	if chat == nil || chat.UserID != userID {
		return chatNotFound(c)
	}

	user, err := h.userService.FindByID(c.Context(), userID)
	if err != nil || user.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "User email not found",
		})
	}

	messages, err := h.chats.ListMessages(c.Context(), chatID)
	if err != nil {
		log.Printf("❌ Failed to list messages for chat %s: %v", chatID, err)
		return internalError(c)
	}
	if len(messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No messages found in chat",
		})
	}

	report := extractReport(messages)
	if report.ChatGPT == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No research report found",
		})
	}

	// Backfill a missing Gemini section so the email always carries both
	// perspectives when possible
	geminiContent := report.Gemini
	if geminiContent == "" && h.gemini != nil {
		geminiContent = h.backfillGemini(c.Context(), report)
	}
	if geminiContent == "" {
		geminiContent = "## Gemini (Google) Research\n\nNo Gemini content available."
	}

	result, err := h.email.SendCombinedReport(c.Context(), user.Email, report.ChatGPT, geminiContent, report.Topic)
	if err != nil {
		var rateLimited *services.RateLimitedError
		if errors.As(err, &rateLimited) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   rateLimited.Error(),
			})
		}
		log.Printf("❌ Failed to send report for chat %s: %v", chatID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to send research report",
		})
	}

	if h.metrics != nil {
		h.metrics.EmailsSent.Inc()
	}
	return c.JSON(models.SendEmailResponse{
		Success:   true,
		Message:   "Research report sent successfully",
		MessageID: result.MessageID,
		Summary:   result.Summary,
	})
}

// chatReport is the research content reconstructed from the message log
type chatReport struct {
	Topic     string
	ChatGPT   string
	Gemini    string
	Questions []string
	Answers   []string
}

// extractReport pulls the research report and dialogue context out of the
// message history. The first user message is the topic, labeled assistant
// messages are the reports.
func extractReport(messages []models.Message) chatReport {
	report := chatReport{Topic: "Research Topic"}

	var aiMessages []models.Message
	var userMessages []models.Message
	for _, m := range messages {
		if m.IsUser {
			userMessages = append(userMessages, m)
		} else {
			aiMessages = append(aiMessages, m)
		}
	}

	if len(userMessages) > 0 {
		report.Topic = userMessages[0].Content
		for _, m := range userMessages[1:] {
			report.Answers = append(report.Answers, m.Content)
		}
	}

	for _, m := range aiMessages {
		switch {
		case strings.HasPrefix(m.Content, "## ChatGPT (OpenAI) Research"):
			report.ChatGPT = m.Content
		case strings.HasPrefix(m.Content, "## Gemini (Google) Research"):
			report.Gemini = m.Content
		}
	}
	if report.ChatGPT == "" && len(aiMessages) > 0 {
		report.ChatGPT = aiMessages[0].Content
	}

	// The clarifying questions live as numbered lines in the first
	// assistant message
	if len(aiMessages) > 0 {
		for _, line := range strings.Split(aiMessages[0].Content, "\n") {
			if questionLinePattern.MatchString(line) {
				report.Questions = append(report.Questions, questionLinePattern.ReplaceAllString(line, ""))
			}
		}
	}

	return report
}

func (h *EmailHandler) backfillGemini(ctx context.Context, report chatReport) string {
	result := h.gemini.GenerateResearchPage(ctx, report.Topic, report.Questions, report.Answers)
	if !result.Success || result.Text == "" {
		return ""
	}
	return "## Gemini (Google) Research\n\n" + result.Text
}
