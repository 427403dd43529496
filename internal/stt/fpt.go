package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lecturenotes/internal/observability"
	"lecturenotes/internal/resilience"
)

// FPTProvider implements STT using FPT.AI Speech-to-Text API
type FPTProvider struct {
	apiKey     string
	url        string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewFPTProvider creates a new FPT STT provider
func NewFPTProvider(apiKey, url string) *FPTProvider {
	return &FPTProvider{
		apiKey:     apiKey,
		url:        url,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		log:        observability.Component("stt.fpt"),
	}
}

// Name returns the provider name
func (p *FPTProvider) Name() string {
	return "fpt"
}

// FPTSTTResponse represents FPT.AI STT API response
type FPTSTTResponse struct {
	Hypotheses []struct {
		Utterance  string  `json:"utterance"`
		Confidence float64 `json:"confidence"`
	} `json:"hypotheses"`
	ErrorCode int    `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Transcribe posts the raw audio bytes to FPT.AI and returns the best hypothesis
func (p *FPTProvider) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	startTime := time.Now()

	audioBytes, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	p.log.Debug().
		Str("file", filepath.Base(audioPath)).
		Int("size", len(audioBytes)).
		Msg("Processing audio file")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(audioBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", p.apiKey)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to FPT.AI: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	p.log.Debug().Str("response", preview(body, 500)).Msg("FPT.AI response")

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("FPT.AI API returned status %d: %s", resp.StatusCode, preview(body, 200))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, resilience.NewRetryableError(err)
		}
		return nil, err
	}

	var sttResp FPTSTTResponse
	if err := json.Unmarshal(body, &sttResp); err != nil {
		return nil, fmt.Errorf("failed to parse FPT.AI response: %w", err)
	}
	if sttResp.ErrorCode != 0 {
		return nil, fmt.Errorf("FPT.AI API error %d: %s", sttResp.ErrorCode, sttResp.Message)
	}

	result := &Result{
		Provider:    p.Name(),
		RawResponse: string(body),
	}
	if len(sttResp.Hypotheses) == 0 {
		p.log.Info().Msg("No hypotheses returned, treating as silence")
		return result, nil
	}

	hyp := sttResp.Hypotheses[0]
	result.Transcript = strings.TrimSpace(hyp.Utterance)
	result.Confidence = hyp.Confidence

	p.log.Info().
		Float64("confidence", result.Confidence).
		Int("chars", len(result.Transcript)).
		Dur("duration", time.Since(startTime)).
		Msg("Transcription finished")

	return result, nil
}

// preview returns at most n bytes of body for logging
func preview(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
