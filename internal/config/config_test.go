package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChatLimit(t *testing.T) {
	cfg := &Config{FreeDailyChatLimit: 5, PremiumDailyChatLimit: 20}

	if got := cfg.ChatLimit(false); got != 5 {
		t.Errorf("free limit = %d, want 5", got)
	}
	if got := cfg.ChatLimit(true); got != 20 {
		t.Errorf("premium limit = %d, want 20", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://localhost:5173", "http://localhost:5173"},
		{"http://localhost:5173/", "http://localhost:5173"},
		{"http://localhost:5173///", "http://localhost:5173"},
	}

	for _, tt := range tests {
		if got := normalizeURL(tt.input); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("FREE_DAILY_CHAT_LIMIT")
	os.Unsetenv("PREMIUM_DAILY_CHAT_LIMIT")

	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("default port = %q, want 3000", cfg.Port)
	}
	if cfg.FreeDailyChatLimit != 5 || cfg.PremiumDailyChatLimit != 20 {
		t.Errorf("default limits = %d/%d, want 5/20", cfg.FreeDailyChatLimit, cfg.PremiumDailyChatLimit)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("FREE_DAILY_CHAT_LIMIT", "3")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.FreeDailyChatLimit != 3 {
		t.Errorf("free limit = %d, want 3", cfg.FreeDailyChatLimit)
	}
}

func TestDefaultPrompts(t *testing.T) {
	prompts := DefaultPrompts()

	if !strings.Contains(prompts.TitleAndQuestions, "%s") {
		t.Error("title prompt must carry a topic placeholder")
	}
	if strings.Count(prompts.ResearchPage, "%s") != 2 {
		t.Error("research prompt must carry topic and Q&A placeholders")
	}
	if strings.Count(prompts.GeminiResearchPage, "%s") != 2 {
		t.Error("gemini prompt must carry topic and Q&A placeholders")
	}
	if !strings.Contains(prompts.ReportSummary, "%s") {
		t.Error("summary prompt must carry a content placeholder")
	}
}

func TestLoadPrompts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")

	content := `title_and_questions: "analyze %s"
research_page: "research %s with %s"
gemini_research_page: "gemini %s with %s"
report_summary: "summarize %s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	prompts, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts failed: %v", err)
	}
	if prompts.TitleAndQuestions != "analyze %s" {
		t.Errorf("title prompt = %q", prompts.TitleAndQuestions)
	}
}

func TestLoadPrompts_MissingRequired(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(path, []byte("report_summary: only this\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPrompts(path); err == nil {
		t.Fatal("expected error for incomplete prompts file")
	}
}

func TestLoadPrompts_MissingFile(t *testing.T) {
	if _, err := LoadPrompts("/nonexistent/prompts.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
