package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"researchdesk/internal/config"
)

func newTestOpenAIService(serverURL string) *OpenAIService {
	return &OpenAIService{
		apiKey:  "test-key",
		model:   "gpt-3.5-turbo",
		prompts: config.DefaultPrompts(),
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 1),
		baseURL: serverURL,
	}
}

func completionResponse(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestGenerateTitleAndQuestions_ParsesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		w.Write([]byte(completionResponse(`{"title": "Solar Adoption Trends", "questions": ["Residential or utility scale?", "Which region?"]}`)))
	}))
	defer server.Close()

	svc := newTestOpenAIService(server.URL)
	result := svc.GenerateTitleAndQuestions(context.Background(), "solar energy")

	if result.Title != "Solar Adoption Trends" {
		t.Errorf("title = %q", result.Title)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(result.Questions))
	}
}

func TestGenerateTitleAndQuestions_FencedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("```json\n{\"title\": \"T\", \"questions\": [\"Q1?\"]}\n```")))
	}))
	defer server.Close()

	svc := newTestOpenAIService(server.URL)
	result := svc.GenerateTitleAndQuestions(context.Background(), "topic")

	if result.Title != "T" || len(result.Questions) != 1 {
		t.Errorf("fenced JSON not parsed: %+v", result)
	}
}

func TestGenerateTitleAndQuestions_FallbackOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "bad key"}`))
	}))
	defer server.Close()

	svc := newTestOpenAIService(server.URL)
	result := svc.GenerateTitleAndQuestions(context.Background(), "topic")

	if result.Title != "Research Topic..." {
		t.Errorf("title = %q, want fallback", result.Title)
	}
	if len(result.Questions) != 0 {
		t.Errorf("questions should be empty on failure, got %v", result.Questions)
	}
}

func TestGenerateTitleAndQuestions_GarbageResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("Sure! Here are some questions you could ask...")))
	}))
	defer server.Close()

	svc := newTestOpenAIService(server.URL)
	result := svc.GenerateTitleAndQuestions(context.Background(), "topic")

	if result.Title != "Research Topic..." {
		t.Errorf("title = %q, want fallback on unparseable content", result.Title)
	}
}

func TestGenerateResearchPage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 {
			t.Fatalf("got %d messages, want 1", len(req.Messages))
		}
		w.Write([]byte(completionResponse("# Refined Research Question\n\ncontent")))
	}))
	defer server.Close()

	svc := newTestOpenAIService(server.URL)
	result := svc.GenerateResearchPage(context.Background(), "topic", []string{"Q1?"}, []string{"A1"})

	if !result.Success {
		t.Fatal("expected success")
	}
	if result.Text == "" {
		t.Error("expected report text")
	}
}

func TestGenerateResearchPage_FailureIsStructured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	svc := newTestOpenAIService(server.URL)
	result := svc.GenerateResearchPage(context.Background(), "topic", nil, nil)

	if result.Success {
		t.Error("expected failure result, not success")
	}
}

func TestComplete_MissingAPIKey(t *testing.T) {
	svc := newTestOpenAIService("http://localhost:0")
	svc.apiKey = ""

	if _, err := svc.complete(context.Background(), "prompt", 0.7, 100); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestBuildQAContext(t *testing.T) {
	tests := []struct {
		name      string
		questions []string
		answers   []string
		want      string
	}{
		{
			name:      "paired",
			questions: []string{"Which era?", "Which country?"},
			answers:   []string{"modern", "India"},
			want:      "Q1: Which era?\nA1: modern\n\nQ2: Which country?\nA2: India",
		},
		{
			name:      "missing answer",
			questions: []string{"Which era?", "Which country?"},
			answers:   []string{"modern"},
			want:      "Q1: Which era?\nA1: modern\n\nQ2: Which country?\nA2: No answer provided",
		},
		{
			name:      "empty answer",
			questions: []string{"Which era?"},
			answers:   []string{""},
			want:      "Q1: Which era?\nA1: No answer provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQAContext(tt.questions, tt.answers); got != tt.want {
				t.Errorf("buildQAContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding space", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
