package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"lecturenotes/internal/observability"
)

// QuizGenerator builds a free-text quiz from a summary
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, summary, transcript string) (string, error)
	Name() string
}

// TemplateQuiz fills a fixed multiple-choice template with a transcript snippet
type TemplateQuiz struct {
	SnippetChars int
}

func (q *TemplateQuiz) Name() string { return "template" }

func (q *TemplateQuiz) GenerateQuiz(_ context.Context, _ string, transcript string) (string, error) {
	snippet := truncateRunes(strings.TrimSpace(transcript), q.SnippetChars)
	return fmt.Sprintf("Q1: What is this about?\nA) %s...\nB) Topic B\nC) Topic C\nAnswer: A", snippet), nil
}

// ModelQuiz prompts a chat model for multiple-choice questions
type ModelQuiz struct {
	chat      chatModel
	questions int
}

// NewModelQuiz creates a quiz generator backed by an OpenAI chat model
func NewModelQuiz(client *openai.Client, model string, maxTokens, questions int) *ModelQuiz {
	return &ModelQuiz{
		chat: chatModel{
			client:    client,
			model:     model,
			maxTokens: maxTokens,
			log:       observability.Component("quiz"),
		},
		questions: questions,
	}
}

func (q *ModelQuiz) Name() string { return "openai:" + q.chat.model }

// GenerateQuiz returns the model output as-is; its structure is not validated
func (q *ModelQuiz) GenerateQuiz(ctx context.Context, summary, _ string) (string, error) {
	systemPrompt, userPrompt := BuildQuizPrompt(summary, q.questions)
	quiz, err := q.chat.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	if quiz == "" {
		return "", fmt.Errorf("quiz model returned empty text")
	}
	return quiz, nil
}
