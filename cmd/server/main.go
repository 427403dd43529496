package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"lecturenotes/internal/ai"
	"lecturenotes/internal/api"
	"lecturenotes/internal/config"
	"lecturenotes/internal/observability"
	"lecturenotes/internal/pipeline"
	"lecturenotes/internal/resilience"
	"lecturenotes/internal/storage"
	"lecturenotes/internal/stt"
	"lecturenotes/internal/telemetry"
)

// staleUploadAge is how old an upload_* file must be before the startup sweep removes it
const staleUploadAge = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := observability.GetLogger()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	log := observability.Component("server")
	gin.SetMode(config.GinMode())

	log.Info().
		Str("stt_provider", cfg.STTProvider).
		Str("summary_mode", cfg.SummaryMode).
		Str("quiz_mode", cfg.QuizMode).
		Str("upload_dir", cfg.UploadDir).
		Str("model_cache_dir", cfg.ModelCacheDir).
		Msg("Starting lecturenotes")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Model handles are created once and shared read-only by every request
	var openaiClient *openai.Client
	if cfg.OpenAIKey != "" {
		openaiClient = ai.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	}

	provider, err := stt.CreateProvider(ctx, cfg, openaiClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create STT provider")
	}
	summarizer, err := ai.NewSummarizer(cfg, openaiClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create summarizer")
	}
	quizzer, err := ai.NewQuizGenerator(cfg, openaiClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create quiz generator")
	}
	log.Info().
		Str("stt", provider.Name()).
		Str("summarizer", summarizer.Name()).
		Str("quiz", quizzer.Name()).
		Msg("Models initialized")

	store, err := storage.NewTempStore(cfg.UploadDir, cfg.MaxUploadBytes())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare upload directory")
	}
	if removed, err := store.Sweep(staleUploadAge); err != nil {
		log.Warn().Err(err).Msg("Failed to sweep stale uploads")
	} else if removed > 0 {
		log.Info().Int("removed", removed).Msg("Removed stale uploads")
	}

	readiness := map[string]observability.HealthCheckFunc{
		"upload_dir": func(context.Context) error { return store.CheckWritable() },
	}

	var sampler telemetry.CPUSampler
	if procSampler, err := telemetry.NewProcSampler(); err != nil {
		log.Warn().Err(err).Msg("CPU sampling unavailable, cpu_usage will be 0")
	} else {
		sampler = procSampler
		readiness["cpu_sampler"] = func(context.Context) error {
			_, err := procSampler.Sample()
			return err
		}
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	retry.InitialBackoff = cfg.RetryBackoff()

	p := pipeline.New(provider, summarizer, quizzer, pipeline.Options{Retry: retry})
	h := api.NewHandler(p, store, telemetry.NewTracker(sampler, cfg.ReferenceAudioSeconds), api.Options{
		RequestTimeout:  cfg.RequestTimeoutDuration(),
		MaxUploadBytes:  cfg.MaxUploadBytes(),
		ReadinessChecks: readiness,
		MetricsEnabled:  cfg.MetricsEnabled,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h, cfg.CORSAllowOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      cfg.RequestTimeoutDuration() + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("lecturenotes backend running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
