package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	genai "google.golang.org/genai"

	"researchdesk/internal/config"
)

// GeminiService is the secondary research provider, backed by the official
// genai client. It also produces the email summary of the combined report.
type GeminiService struct {
	client  *genai.Client
	model   string
	prompts *config.Prompts
}

// NewGeminiService creates a new Gemini client. Returns a disabled service
// when no API key is configured; calls then fail softly.
func NewGeminiService(ctx context.Context, cfg *config.Config, prompts *config.Prompts) (*GeminiService, error) {
	if cfg.GeminiAPIKey == "" {
		log.Printf("⚠️ [GEMINI] GEMINI_API_KEY not set, secondary provider disabled")
		return &GeminiService{model: cfg.GeminiModel, prompts: prompts}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{client: client, model: cfg.GeminiModel, prompts: prompts}, nil
}

// Name identifies the provider in logs and degraded responses
func (s *GeminiService) Name() string { return "gemini" }

// GenerateResearchPage produces the secondary Markdown research report
func (s *GeminiService) GenerateResearchPage(ctx context.Context, topic string, questions, answers []string) ProviderResult {
	prompt := fmt.Sprintf(s.prompts.GeminiResearchPage, topic, buildQAContext(questions, answers))

	text, err := s.generate(ctx, prompt)
	if err != nil {
		log.Printf("❌ [GEMINI] Research page generation failed: %v", err)
		return ProviderResult{Success: false}
	}

	log.Printf("✅ [GEMINI] Generated research page (%d bytes)", len(text))
	return ProviderResult{Success: true, Text: text}
}

// SummarizeCombinedReport condenses the combined report into a short plain
// prose summary for the email body.
func (s *GeminiService) SummarizeCombinedReport(ctx context.Context, combinedMarkdown string) (string, error) {
	prompt := fmt.Sprintf(s.prompts.ReportSummary, combinedMarkdown)

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to summarize report: %w", err)
	}
	return text, nil
}

func (s *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("GEMINI_API_KEY is not configured")
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}
