package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	restv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"lecturenotes/internal/observability"
)

// DeepgramProvider implements STT using Deepgram's pre-recorded REST API
type DeepgramProvider struct {
	client   *restv1api.Client
	model    string
	language string
	log      zerolog.Logger
}

// NewDeepgramProvider creates a Deepgram provider
func NewDeepgramProvider(apiKey, model, language string) *DeepgramProvider {
	c := listenClient.NewREST(apiKey, &interfaces.ClientOptions{})
	return &DeepgramProvider{
		client:   restv1api.New(c),
		model:    model,
		language: language,
		log:      observability.Component("stt.deepgram"),
	}
}

// Name returns the provider name
func (p *DeepgramProvider) Name() string {
	return "deepgram"
}

// deepgramResponse is the subset of the pre-recorded response we read
type deepgramResponse struct {
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends the audio file to Deepgram and returns the best alternative
func (p *DeepgramProvider) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	startTime := time.Now()

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       p.model,
		Language:    p.language,
		Punctuate:   true,
		SmartFormat: true,
	}

	p.log.Debug().
		Str("file", filepath.Base(audioPath)).
		Str("model", p.model).
		Msg("Calling Deepgram pre-recorded transcription")

	res, err := p.client.FromFile(ctx, audioPath, options)
	if err != nil {
		return nil, fmt.Errorf("Deepgram transcription failed: %w", err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Deepgram response: %w", err)
	}
	result, err := parseDeepgramResponse(raw)
	if err != nil {
		return nil, err
	}
	result.Provider = p.Name()
	if result.Language == "" {
		result.Language = p.language
	}

	p.log.Info().
		Int("chars", len(result.Transcript)).
		Float64("confidence", result.Confidence).
		Dur("duration", time.Since(startTime)).
		Msg("Transcription finished")

	return result, nil
}

// parseDeepgramResponse extracts the first alternative of the first channel.
// A response without channels or alternatives means silence.
func parseDeepgramResponse(raw []byte) (*Result, error) {
	var resp deepgramResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse Deepgram response: %w", err)
	}

	result := &Result{RawResponse: string(raw)}
	if len(resp.Results.Channels) == 0 {
		return result, nil
	}
	channel := resp.Results.Channels[0]
	result.Language = channel.DetectedLanguage
	if len(channel.Alternatives) == 0 {
		return result, nil
	}
	result.Transcript = strings.TrimSpace(channel.Alternatives[0].Transcript)
	result.Confidence = channel.Alternatives[0].Confidence
	return result, nil
}
