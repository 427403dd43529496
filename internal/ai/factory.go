package ai

import (
	"fmt"

	"github.com/sashabaranov/go-openai"

	"lecturenotes/internal/config"
)

// TemplateSnippetChars is how much of the transcript the template quiz embeds
const TemplateSnippetChars = 30

// NewSummarizer creates the summarizer selected by SUMMARY_MODE. client may be
// nil unless the model mode is selected.
func NewSummarizer(cfg *config.Config, client *openai.Client) (Summarizer, error) {
	switch cfg.SummaryMode {
	case config.SummaryModeTruncate:
		return &TruncateSummarizer{MaxChars: cfg.SummaryMaxChars}, nil
	case config.SummaryModeLead:
		return &LeadSummarizer{Sentences: cfg.SummaryLeadSentences}, nil
	case config.SummaryModeModel:
		if client == nil {
			return nil, fmt.Errorf("summary mode %q requires an OpenAI client", cfg.SummaryMode)
		}
		return NewModelSummarizer(client, cfg.SummaryModel, cfg.SummaryMaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported summary mode: %s", cfg.SummaryMode)
	}
}

// NewQuizGenerator creates the quiz generator selected by QUIZ_MODE
func NewQuizGenerator(cfg *config.Config, client *openai.Client) (QuizGenerator, error) {
	switch cfg.QuizMode {
	case config.QuizModeTemplate:
		return &TemplateQuiz{SnippetChars: TemplateSnippetChars}, nil
	case config.QuizModeModel:
		if client == nil {
			return nil, fmt.Errorf("quiz mode %q requires an OpenAI client", cfg.QuizMode)
		}
		return NewModelQuiz(client, cfg.QuizModel, cfg.QuizMaxTokens, cfg.QuizQuestions), nil
	default:
		return nil, fmt.Errorf("unsupported quiz mode: %s", cfg.QuizMode)
	}
}
