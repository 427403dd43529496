package ai

import (
	"context"
	"strings"
	"testing"

	"lecturenotes/internal/config"
)

func TestHasSpeech(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		expected   bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n\t ", false},
		{"exactly twenty", "12345678901234567890", false},
		{"twenty padded", "  12345678901234567890  ", false},
		{"twenty one", "123456789012345678901", true},
		{"multibyte twenty", strings.Repeat("é", 20), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasSpeech(tt.transcript); got != tt.expected {
				t.Errorf("HasSpeech(%q): expected %v, got %v", tt.transcript, tt.expected, got)
			}
		})
	}
}

func TestTruncateSummarizer(t *testing.T) {
	s := &TruncateSummarizer{MaxChars: 10}

	summary, err := s.Summarize(context.Background(), "  Photosynthesis converts light into energy.  ")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	expected := SummaryLabel + "Photosynth..."
	if summary != expected {
		t.Errorf("Expected %q, got %q", expected, summary)
	}

	long := strings.Repeat("a", 700)
	summary, _ = (&TruncateSummarizer{MaxChars: 600}).Summarize(context.Background(), long)
	if !strings.HasPrefix(summary, SummaryLabel+long[:600]) {
		t.Error("Expected summary to start with the label and the first 600 characters")
	}
	if len(summary) != len(SummaryLabel)+600+3 {
		t.Errorf("Unexpected summary length %d", len(summary))
	}
}

func TestLeadSummarizer(t *testing.T) {
	s := &LeadSummarizer{Sentences: 2}

	summary, err := s.Summarize(context.Background(), "Cells divide. DNA replicates first. Then mitosis begins. Finally cytokinesis.")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	expected := SummaryLabel + "Cells divide. DNA replicates first."
	if summary != expected {
		t.Errorf("Expected %q, got %q", expected, summary)
	}

	summary, _ = s.Summarize(context.Background(), "no periods at all in this transcript")
	if summary != SummaryLabel+"no periods at all in this transcript." {
		t.Errorf("Unexpected summary %q", summary)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in       string
		n        int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"日本語のテキスト", 3, "日本語"},
		{"hello", 0, ""},
	}

	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.expected {
			t.Errorf("truncateRunes(%q, %d): expected %q, got %q", tt.in, tt.n, tt.expected, got)
		}
	}
}

func TestTemplateQuiz(t *testing.T) {
	q := &TemplateQuiz{SnippetChars: TemplateSnippetChars}
	transcript := "Today we discuss the French Revolution and its causes in detail."

	quiz, err := q.GenerateQuiz(context.Background(), "ignored", transcript)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if !strings.Contains(quiz, "A) "+transcript[:30]+"...") {
		t.Errorf("Expected quiz to embed the first 30 characters, got %q", quiz)
	}
	if !strings.HasSuffix(quiz, "Answer: A") {
		t.Errorf("Expected quiz to end with the answer line, got %q", quiz)
	}
}

func TestFactories(t *testing.T) {
	cfg := &config.Config{
		SummaryMode:          config.SummaryModeLead,
		SummaryLeadSentences: 5,
		QuizMode:             config.QuizModeTemplate,
	}

	s, err := NewSummarizer(cfg, nil)
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
	if s.Name() != "lead" {
		t.Errorf("Expected lead summarizer, got %s", s.Name())
	}

	q, err := NewQuizGenerator(cfg, nil)
	if err != nil {
		t.Fatalf("NewQuizGenerator: %v", err)
	}
	if q.Name() != "template" {
		t.Errorf("Expected template quiz, got %s", q.Name())
	}

	cfg.SummaryMode = config.SummaryModeModel
	if _, err := NewSummarizer(cfg, nil); err == nil {
		t.Error("Expected error for model mode without a client")
	}

	cfg.QuizMode = "unknown"
	if _, err := NewQuizGenerator(cfg, nil); err == nil {
		t.Error("Expected error for unknown quiz mode")
	}
}
