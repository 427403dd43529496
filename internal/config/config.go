package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Summary and quiz modes
const (
	SummaryModeTruncate = "truncate"
	SummaryModeLead     = "lead"
	SummaryModeModel    = "model"

	QuizModeTemplate = "template"
	QuizModeModel    = "model"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8000"`

	// Speech-to-text provider: openai, deepgram, fpt, google
	STTProvider string `envconfig:"STT_PROVIDER" default:"openai"`
	STTLanguage string `envconfig:"STT_LANGUAGE" default:""`

	OpenAIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`
	WhisperModel  string `envconfig:"WHISPER_MODEL" default:"whisper-1"`

	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY"`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`

	FPTApiKey string `envconfig:"FPT_AI_API_KEY"`
	FPTSTTURL string `envconfig:"FPT_AI_STT_URL" default:"https://api.fpt.ai/hmi/asr/v1"`

	GoogleProjectID string `envconfig:"GOOGLE_STT_PROJECT_ID"`
	GoogleKeyFile   string `envconfig:"GOOGLE_STT_KEY_FILE"`
	GoogleLanguage  string `envconfig:"GOOGLE_STT_LANGUAGE" default:"en-US"`

	SummaryMode          string `envconfig:"SUMMARY_MODE" default:"truncate"`
	SummaryMaxChars      int    `envconfig:"SUMMARY_MAX_CHARS" default:"600"`
	SummaryLeadSentences int    `envconfig:"SUMMARY_LEAD_SENTENCES" default:"5"`
	SummaryModel         string `envconfig:"SUMMARY_MODEL" default:"gpt-4o-mini"`
	SummaryMaxTokens     int    `envconfig:"SUMMARY_MAX_TOKENS" default:"80"`

	QuizMode      string `envconfig:"QUIZ_MODE" default:"template"`
	QuizModel     string `envconfig:"QUIZ_MODEL" default:"gpt-4o-mini"`
	QuizMaxTokens int    `envconfig:"QUIZ_MAX_TOKENS" default:"150"`
	QuizQuestions int    `envconfig:"QUIZ_QUESTIONS" default:"3"`

	// Upload intake
	UploadDir   string `envconfig:"UPLOAD_DIR" default:""`
	MaxUploadMB int    `envconfig:"MAX_UPLOAD_MB" default:"25"`

	// Only logged at startup; provider SDKs manage their own caches
	ModelCacheDir string `envconfig:"MODEL_CACHE_DIR" default:""`

	// Fixed audio length the processing speed ratio is computed against
	ReferenceAudioSeconds float64 `envconfig:"REFERENCE_AUDIO_SECONDS" default:"30"`

	RequestTimeout      int `envconfig:"REQUEST_TIMEOUT" default:"300"`      // seconds
	RetryMaxAttempts    int `envconfig:"RETRY_MAX_ATTEMPTS" default:"2"`     // attempts per model call
	RetryInitialBackoff int `envconfig:"RETRY_INITIAL_BACKOFF" default:"200"` // milliseconds

	CORSAllowOrigins string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load loads configuration from a .env file (if present) and environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.STTProvider = strings.ToLower(strings.TrimSpace(cfg.STTProvider))
	cfg.SummaryMode = strings.ToLower(strings.TrimSpace(cfg.SummaryMode))
	cfg.QuizMode = strings.ToLower(strings.TrimSpace(cfg.QuizMode))
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected providers have what they need
func (c *Config) Validate() error {
	switch c.STTProvider {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when STT_PROVIDER=openai")
		}
	case "deepgram":
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required when STT_PROVIDER=deepgram")
		}
	case "fpt":
		if c.FPTApiKey == "" {
			return fmt.Errorf("FPT_AI_API_KEY is required when STT_PROVIDER=fpt")
		}
	case "google":
		if c.GoogleKeyFile == "" {
			return fmt.Errorf("GOOGLE_STT_KEY_FILE is required when STT_PROVIDER=google")
		}
	default:
		return fmt.Errorf("unsupported STT_PROVIDER %q. Supported: openai, deepgram, fpt, google", c.STTProvider)
	}

	switch c.SummaryMode {
	case SummaryModeTruncate, SummaryModeLead:
	case SummaryModeModel:
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when SUMMARY_MODE=model")
		}
	default:
		return fmt.Errorf("unsupported SUMMARY_MODE %q. Supported: truncate, lead, model", c.SummaryMode)
	}

	switch c.QuizMode {
	case QuizModeTemplate:
	case QuizModeModel:
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when QUIZ_MODE=model")
		}
	default:
		return fmt.Errorf("unsupported QUIZ_MODE %q. Supported: template, model", c.QuizMode)
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.ReferenceAudioSeconds <= 0 {
		return fmt.Errorf("REFERENCE_AUDIO_SECONDS must be positive, got %g", c.ReferenceAudioSeconds)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}
	if c.SummaryMaxChars <= 0 || c.SummaryLeadSentences <= 0 || c.QuizQuestions <= 0 {
		return fmt.Errorf("SUMMARY_MAX_CHARS, SUMMARY_LEAD_SENTENCES and QUIZ_QUESTIONS must be positive")
	}
	return nil
}

// MaxUploadBytes returns the upload size limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// RequestTimeoutDuration returns the per-request pipeline deadline
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// RetryBackoff returns the initial retry backoff
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryInitialBackoff) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GinMode returns the gin mode, release unless GIN_MODE says otherwise
func GinMode() string {
	return getEnv("GIN_MODE", "release")
}
