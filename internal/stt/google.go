package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"lecturenotes/internal/observability"
	"lecturenotes/internal/resilience"
)

const (
	googleSpeechEndpoint = "https://speech.googleapis.com/v1"
	googleCloudScope     = "https://www.googleapis.com/auth/cloud-platform"
)

// GoogleProvider implements STT using Google Cloud Speech-to-Text REST API
type GoogleProvider struct {
	projectID  string
	apiKey     string
	language   string
	endpoint   string
	httpClient *http.Client
	useAPIKey  bool // true if using API key, false if using service account
	log        zerolog.Logger
}

// isGoogleAPIKey reports whether keyData looks like a Google API key rather
// than service account credentials
func isGoogleAPIKey(keyData string) bool {
	keyData = strings.TrimSpace(keyData)
	return len(keyData) == 39 && strings.HasPrefix(keyData, "AIzaSy")
}

// NewGoogleProvider creates a new Google STT provider.
// keyData can be either:
//   - An API key (39 characters, typically starts with "AIzaSy")
//   - A file path to a JSON key file (e.g., "./keys/google-service-account.json")
//   - A JSON string containing the service account credentials
func NewGoogleProvider(ctx context.Context, projectID, keyData, language string) (*GoogleProvider, error) {
	p := &GoogleProvider{
		projectID: projectID,
		language:  language,
		endpoint:  googleSpeechEndpoint,
		log:       observability.Component("stt.google"),
	}

	keyDataTrimmed := strings.TrimSpace(keyData)
	if isGoogleAPIKey(keyDataTrimmed) {
		p.apiKey = keyDataTrimmed
		p.useAPIKey = true
		p.httpClient = &http.Client{Timeout: 90 * time.Second}
		p.log.Info().Msg("Using API key authentication")
		return p, nil
	}

	var tokenSource oauth2.TokenSource
	if keyDataTrimmed == "" {
		creds, err := google.FindDefaultCredentials(ctx, googleCloudScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		tokenSource = creds.TokenSource
	} else {
		var jsonData []byte
		if strings.HasPrefix(keyDataTrimmed, "{") {
			jsonData = []byte(keyDataTrimmed)
		} else {
			var err error
			jsonData, err = os.ReadFile(keyDataTrimmed)
			if err != nil {
				return nil, fmt.Errorf("failed to read key file '%s': %w", keyDataTrimmed, err)
			}
		}

		creds, err := google.CredentialsFromJSON(ctx, jsonData, googleCloudScope)
		if err != nil {
			return nil, fmt.Errorf("failed to create credentials from JSON: %w", err)
		}
		tokenSource = creds.TokenSource
	}

	// the token source outlives ctx, so the oauth2 client is bound to a background context
	p.httpClient = oauth2.NewClient(context.Background(), tokenSource)
	p.httpClient.Timeout = 90 * time.Second
	p.log.Info().Str("project", projectID).Msg("Using service account authentication")
	return p, nil
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return "google"
}

// GoogleSTTRequest represents Google Speech-to-Text API request
type GoogleSTTRequest struct {
	Config GoogleSTTConfig `json:"config"`
	Audio  GoogleSTTAudio  `json:"audio"`
}

// GoogleSTTConfig represents recognition config
type GoogleSTTConfig struct {
	Encoding                   string `json:"encoding"`
	SampleRateHertz            int    `json:"sampleRateHertz"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	Model                      string `json:"model,omitempty"`
	UseEnhanced                bool   `json:"useEnhanced,omitempty"`
}

// GoogleSTTAudio represents audio data
type GoogleSTTAudio struct {
	Content string `json:"content"` // Base64 encoded
}

// GoogleSTTResponse represents Google Speech-to-Text API response
type GoogleSTTResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
		LanguageCode string `json:"languageCode"`
	} `json:"results"`
	Error *GoogleSTTError `json:"error,omitempty"`
}

// GoogleSTTError represents an API error
type GoogleSTTError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Transcribe sends the base64 encoded audio to the recognize endpoint. Long
// recordings come back as several results; their best alternatives are joined.
func (p *GoogleProvider) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	startTime := time.Now()

	audioBytes, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	fileExt := filepath.Ext(audioPath)
	encoding, sampleRate := getGoogleAudioConfig(fileExt)

	reqJSON, err := json.Marshal(GoogleSTTRequest{
		Config: GoogleSTTConfig{
			Encoding:                   encoding,
			SampleRateHertz:            sampleRate,
			LanguageCode:               p.language,
			EnableAutomaticPunctuation: true,
			Model:                      "latest_long",
			UseEnhanced:                true,
		},
		Audio: GoogleSTTAudio{
			Content: base64.StdEncoding.EncodeToString(audioBytes),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.recognizeURL(), bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	p.log.Debug().
		Str("file", filepath.Base(audioPath)).
		Str("encoding", encoding).
		Int("size", len(audioBytes)).
		Msg("Calling Google Speech-to-Text")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Google Speech-to-Text: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var sttResp GoogleSTTResponse
	parseErr := json.Unmarshal(body, &sttResp)

	if resp.StatusCode != http.StatusOK {
		msg := preview(body, 200)
		if parseErr == nil && sttResp.Error != nil {
			msg = sttResp.Error.Message
		}
		err := fmt.Errorf("Google Speech-to-Text API returned status %d: %s", resp.StatusCode, msg)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, resilience.NewRetryableError(err)
		}
		return nil, err
	}
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse Google Speech-to-Text response: %w", parseErr)
	}
	if sttResp.Error != nil {
		return nil, fmt.Errorf("Google Speech-to-Text API error: %s", sttResp.Error.Message)
	}

	result := &Result{
		Provider:    p.Name(),
		Language:    p.language,
		RawResponse: string(body),
	}

	var parts []string
	var confidenceSum float64
	for _, r := range sttResp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(r.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
			confidenceSum += r.Alternatives[0].Confidence
		}
		if r.LanguageCode != "" {
			result.Language = r.LanguageCode
		}
	}
	if len(parts) > 0 {
		result.Transcript = strings.Join(parts, " ")
		result.Confidence = confidenceSum / float64(len(parts))
	}

	p.log.Info().
		Int("segments", len(parts)).
		Int("chars", len(result.Transcript)).
		Dur("duration", time.Since(startTime)).
		Msg("Transcription finished")

	return result, nil
}

func (p *GoogleProvider) recognizeURL() string {
	if p.useAPIKey {
		return fmt.Sprintf("%s/speech:recognize?key=%s", p.endpoint, p.apiKey)
	}
	return fmt.Sprintf("%s/speech:recognize", p.endpoint)
}

// getGoogleAudioConfig determines encoding and sample rate based on file extension
func getGoogleAudioConfig(fileExt string) (string, int) {
	switch strings.ToLower(fileExt) {
	case ".wav":
		return "LINEAR16", 16000
	case ".mp3":
		return "MP3", 44100
	case ".m4a", ".aac":
		return "AAC", 44100
	case ".ogg", ".oga", ".opus":
		return "OGG_OPUS", 48000
	case ".flac":
		return "FLAC", 44100
	case ".webm":
		return "WEBM_OPUS", 48000
	default:
		return "LINEAR16", 16000
	}
}
