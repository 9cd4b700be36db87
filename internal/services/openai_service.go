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

	"golang.org/x/time/rate"

	"researchdesk/internal/config"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIService talks to the OpenAI chat completions API. It is the primary
// research provider and also produces the chat title and clarifying questions.
type OpenAIService struct {
	apiKey  string
	model   string
	prompts *config.Prompts
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// TitleAndQuestions is the parsed result of the topic analysis call
type TitleAndQuestions struct {
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
}

// NewOpenAIService creates a new OpenAI client
func NewOpenAIService(cfg *config.Config, prompts *config.Prompts) *OpenAIService {
	return &OpenAIService{
		apiKey:  cfg.OpenAIAPIKey,
		model:   cfg.OpenAIModel,
		prompts: prompts,
		client:  &http.Client{Timeout: cfg.ProviderTimeout},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		baseURL: openAIBaseURL,
	}
}

// Name identifies the provider in logs and degraded responses
func (s *OpenAIService) Name() string { return "openai" }

// GenerateTitleAndQuestions analyzes a research topic in a single call and
// returns a short title plus 2-4 clarifying questions. On any failure it
// returns the fallback title with no questions so the chat flow can continue.
func (s *OpenAIService) GenerateTitleAndQuestions(ctx context.Context, topic string) *TitleAndQuestions {
	prompt := fmt.Sprintf(s.prompts.TitleAndQuestions, topic)

	content, err := s.complete(ctx, prompt, 0.7, 800)
	if err != nil {
		log.Printf("❌ [OPENAI] Title/questions generation failed: %v", err)
		return &TitleAndQuestions{Title: "Research Topic...", Questions: nil}
	}

	var result TitleAndQuestions
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		log.Printf("⚠️ [OPENAI] Failed to parse title/questions JSON (response length: %d bytes): %v", len(content), err)
		return &TitleAndQuestions{Title: "Research Topic...", Questions: nil}
	}

	if result.Title == "" {
		result.Title = "Research Topic..."
	}
	log.Printf("✅ [OPENAI] Generated title %q with %d questions", result.Title, len(result.Questions))
	return &result
}

// GenerateResearchPage produces the primary Markdown research report
func (s *OpenAIService) GenerateResearchPage(ctx context.Context, topic string, questions, answers []string) ProviderResult {
	prompt := fmt.Sprintf(s.prompts.ResearchPage, topic, buildQAContext(questions, answers))

	content, err := s.complete(ctx, prompt, 0.7, 4000)
	if err != nil {
		log.Printf("❌ [OPENAI] Research page generation failed: %v", err)
		return ProviderResult{Success: false}
	}

	log.Printf("✅ [OPENAI] Generated research page (%d bytes)", len(content))
	return ProviderResult{Success: true, Text: content}
}

// complete runs one chat completion with throttling and a bounded retry on
// transient upstream failures (429 and 5xx).
func (s *OpenAIService) complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY is not configured")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	requestBody := map[string]interface{}{
		"model":       s.model,
		"messages":    []map[string]interface{}{{"role": "user", "content": prompt}},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}
	reqBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 2 * time.Second
			log.Printf("⚠️ [OPENAI] Retrying after %v (attempt %d/3)", backoff, attempt+1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		content, retryable, err := s.doRequest(ctx, reqBody)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

func (s *OpenAIService) doRequest(ctx context.Context, reqBody []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", false, fmt.Errorf("failed to parse API response: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return "", false, fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(apiResponse.Choices[0].Message.Content), false, nil
}

// buildQAContext renders the clarifying dialogue as numbered Q/A pairs
func buildQAContext(questions, answers []string) string {
	var sb strings.Builder
	for i, question := range questions {
		answer := "No answer provided"
		if i < len(answers) && answers[i] != "" {
			answer = answers[i]
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Q%d: %s\nA%d: %s", i+1, question, i+1, answer)
	}
	return sb.String()
}

// extractJSON strips markdown code fences that models sometimes wrap around
// JSON output.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	}
	return strings.TrimSpace(content)
}
