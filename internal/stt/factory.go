package stt

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"lecturenotes/internal/config"
	"lecturenotes/internal/observability"
)

// CreateProvider creates the STT provider selected by STT_PROVIDER. client is
// the shared OpenAI client and is only required for the openai provider.
func CreateProvider(ctx context.Context, cfg *config.Config, client *openai.Client) (Provider, error) {
	log := observability.Component("stt.factory")

	switch cfg.STTProvider {
	case "openai":
		if client == nil {
			return nil, fmt.Errorf("openai STT provider requires an OpenAI client")
		}
		log.Info().Str("model", cfg.WhisperModel).Msg("Creating OpenAI STT provider")
		return NewOpenAIProvider(client, cfg.WhisperModel, cfg.STTLanguage), nil
	case "deepgram":
		if cfg.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("DEEPGRAM_API_KEY environment variable is not set")
		}
		log.Info().Str("model", cfg.DeepgramModel).Msg("Creating Deepgram STT provider")
		return NewDeepgramProvider(cfg.DeepgramAPIKey, cfg.DeepgramModel, cfg.STTLanguage), nil
	case "fpt":
		if cfg.FPTApiKey == "" {
			return nil, fmt.Errorf("FPT_AI_API_KEY environment variable is not set")
		}
		log.Info().Str("url", cfg.FPTSTTURL).Msg("Creating FPT STT provider")
		return NewFPTProvider(cfg.FPTApiKey, cfg.FPTSTTURL), nil
	case "google":
		if !isGoogleAPIKey(cfg.GoogleKeyFile) && cfg.GoogleProjectID == "" {
			return nil, fmt.Errorf("GOOGLE_STT_PROJECT_ID environment variable is required when using service account")
		}
		language := cfg.GoogleLanguage
		if cfg.STTLanguage != "" {
			language = cfg.STTLanguage
		}
		return NewGoogleProvider(ctx, cfg.GoogleProjectID, cfg.GoogleKeyFile, language)
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s. Supported: openai, deepgram, fpt, google", cfg.STTProvider)
	}
}
