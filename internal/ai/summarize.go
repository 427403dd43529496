package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"lecturenotes/internal/observability"
)

const (
	// NoSpeechPlaceholder replaces the summary when the transcript is too short
	NoSpeechPlaceholder = "No speech detected."
	// MinSpeechChars is the longest transcript still treated as no speech
	MinSpeechChars = 20
	// SummaryLabel prefixes heuristic summaries
	SummaryLabel = "FAST SUMMARY:\n"
)

// HasSpeech reports whether the trimmed transcript is longer than MinSpeechChars
func HasSpeech(transcript string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(transcript)) > MinSpeechChars
}

// Summarizer derives a short summary from a transcript
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
	Name() string
}

// TruncateSummarizer keeps the first MaxChars characters of the transcript
type TruncateSummarizer struct {
	MaxChars int
}

func (s *TruncateSummarizer) Name() string { return "truncate" }

func (s *TruncateSummarizer) Summarize(_ context.Context, transcript string) (string, error) {
	return SummaryLabel + truncateRunes(strings.TrimSpace(transcript), s.MaxChars) + "...", nil
}

// LeadSummarizer keeps the first few period-delimited sentences
type LeadSummarizer struct {
	Sentences int
}

func (s *LeadSummarizer) Name() string { return "lead" }

func (s *LeadSummarizer) Summarize(_ context.Context, transcript string) (string, error) {
	sentences := make([]string, 0, s.Sentences)
	for _, part := range strings.Split(transcript, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sentences = append(sentences, part)
		if len(sentences) == s.Sentences {
			break
		}
	}
	return SummaryLabel + strings.Join(sentences, ". ") + ".", nil
}

// ModelSummarizer asks a chat model for an abstractive summary
type ModelSummarizer struct {
	chat chatModel
}

// NewModelSummarizer creates a summarizer backed by an OpenAI chat model
func NewModelSummarizer(client *openai.Client, model string, maxTokens int) *ModelSummarizer {
	return &ModelSummarizer{
		chat: chatModel{
			client:    client,
			model:     model,
			maxTokens: maxTokens,
			log:       observability.Component("summarizer"),
		},
	}
}

func (s *ModelSummarizer) Name() string { return "openai:" + s.chat.model }

func (s *ModelSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	systemPrompt, userPrompt := BuildSummaryPrompt(transcript)
	summary, err := s.chat.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", fmt.Errorf("summarization model returned empty text")
	}
	return summary, nil
}

// truncateRunes cuts s to at most n characters without splitting a UTF-8 sequence
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
