package stt

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"lecturenotes/internal/ai"
	"lecturenotes/internal/observability"
)

// OpenAIProvider implements STT using the OpenAI audio transcription endpoint
type OpenAIProvider struct {
	client   *openai.Client
	model    string
	language string
	log      zerolog.Logger
}

// NewOpenAIProvider creates a Whisper provider. language may be empty for auto-detection.
func NewOpenAIProvider(client *openai.Client, model, language string) *OpenAIProvider {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIProvider{
		client:   client,
		model:    model,
		language: language,
		log:      observability.Component("stt.openai"),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Transcribe uploads the audio file and returns the recognized text
func (p *OpenAIProvider) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	startTime := time.Now()

	p.log.Debug().
		Str("file", filepath.Base(audioPath)).
		Str("model", p.model).
		Msg("Calling OpenAI transcription")

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: audioPath,
		Language: p.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI transcription failed: %w", ai.ClassifyOpenAIError(err))
	}

	transcript := strings.TrimSpace(resp.Text)
	p.log.Info().
		Int("chars", len(transcript)).
		Dur("duration", time.Since(startTime)).
		Msg("Transcription finished")

	return &Result{
		Transcript: transcript,
		Provider:   p.Name(),
		Language:   firstNonEmpty(resp.Language, p.language),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
