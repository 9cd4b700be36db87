package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yuin/goldmark"

	"researchdesk/internal/config"
)

const sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// emailRateLimitWindow is the minimum interval between emails to the same
// recipient.
const emailRateLimitWindow = 1 * time.Minute

// RateLimitedError signals that the recipient received an email too recently
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("email already sent to this recipient, wait %ds before sending again", int(e.Wait.Seconds()))
}

// EmailService delivers the combined research report through the SendGrid v3
// API. Sends to the same recipient are rate limited through Redis so the
// limit holds across instances; without Redis the limiter fails open.
type EmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
	client    *http.Client
	redis     *redis.Client
	gemini    *GeminiService
}

// SendResult carries the SendGrid message id and the generated summary
type SendResult struct {
	MessageID string
	Summary   string
}

type sendGridEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []struct {
		To []sendGridEmail `json:"to"`
	} `json:"personalizations"`
	From    sendGridEmail     `json:"from"`
	Subject string            `json:"subject"`
	Content []sendGridContent `json:"content"`
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, redisClient *redis.Client, gemini *GeminiService) *EmailService {
	return &EmailService{
		apiKey:    cfg.SendGridAPIKey,
		fromEmail: cfg.SendGridFromEmail,
		fromName:  cfg.SendGridFromName,
		client:    &http.Client{Timeout: 60 * time.Second},
		redis:     redisClient,
		gemini:    gemini,
	}
}

// SendCombinedReport emails the ChatGPT and Gemini reports to the recipient.
// A short Gemini summary leads the email body when summarization succeeds.
func (s *EmailService) SendCombinedReport(ctx context.Context, toEmail, chatgptContent, geminiContent, topic string) (*SendResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("SENDGRID_API_KEY is not configured")
	}

	if err := s.checkRateLimit(ctx, toEmail); err != nil {
		return nil, err
	}

	combined := chatgptContent + "\n\n---\n\n" + geminiContent

	summary := ""
	if s.gemini != nil {
		text, err := s.gemini.SummarizeCombinedReport(ctx, combined)
		if err != nil {
			log.Printf("⚠️ [EMAIL] Summary generation failed, sending without summary: %v", err)
		} else {
			summary = text
		}
	}

	body := combined
	if summary != "" {
		body = "## Summary\n\n" + summary + "\n\n---\n\n" + combined
	}

	htmlBody, err := renderMarkdown(body)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	subject := fmt.Sprintf("Research Report: %s", topic)
	messageID, err := s.send(ctx, toEmail, subject, body, htmlBody)
	if err != nil {
		return nil, err
	}

	s.recordSend(ctx, toEmail)
	log.Printf("✅ [EMAIL] Research report sent to %s (message id %s)", toEmail, messageID)
	return &SendResult{MessageID: messageID, Summary: summary}, nil
}

func (s *EmailService) send(ctx context.Context, toEmail, subject, textBody, htmlBody string) (string, error) {
	request := sendGridRequest{
		From:    sendGridEmail{Email: s.fromEmail, Name: s.fromName},
		Subject: subject,
		Content: []sendGridContent{
			{Type: "text/plain", Value: textBody},
			{Type: "text/html", Value: htmlBody},
		},
	}
	request.Personalizations = append(request.Personalizations, struct {
		To []sendGridEmail `json:"to"`
	}{To: []sendGridEmail{{Email: toEmail}}})

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", sendGridEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// SendGrid returns 202 Accepted on success
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("sendgrid error (status %d): %s", resp.StatusCode, string(body))
	}

	return resp.Header.Get("X-Message-Id"), nil
}

// checkRateLimit enforces one email per recipient per minute. Redis errors
// fail open so a limiter outage never blocks delivery.
func (s *EmailService) checkRateLimit(ctx context.Context, email string) error {
	if s.redis == nil {
		return nil
	}

	key := rateLimitKey(email)
	ttl, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		log.Printf("⚠️ [EMAIL] Rate limit check failed, allowing send: %v", err)
		return nil
	}
	if ttl > 0 {
		return &RateLimitedError{Wait: ttl}
	}
	return nil
}

func (s *EmailService) recordSend(ctx context.Context, email string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, rateLimitKey(email), time.Now().Unix(), emailRateLimitWindow).Err(); err != nil {
		log.Printf("⚠️ [EMAIL] Failed to record send for rate limiting: %v", err)
	}
}

func rateLimitKey(email string) string {
	return "email_ratelimit:" + strings.ToLower(email)
}

func renderMarkdown(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
