package pipeline

import (
	"context"
	"fmt"
	"time"

	"lecturenotes/internal/ai"
	"lecturenotes/internal/observability"
	"lecturenotes/internal/resilience"
	"lecturenotes/internal/storage"
	"lecturenotes/internal/stt"
)

// Options tunes a Pipeline
type Options struct {
	// Retry applies to every model call; nil means a single attempt
	Retry *resilience.RetryConfig
	// NoSpeechQuiz builds the quiz when nothing was recognized. Defaults to the template quiz.
	NoSpeechQuiz ai.QuizGenerator
}

// Pipeline runs transcribe, summarize and quiz in sequence. It holds only
// read-only model handles and is safe for concurrent use.
type Pipeline struct {
	provider     stt.Provider
	summarizer   ai.Summarizer
	quizzer      ai.QuizGenerator
	noSpeechQuiz ai.QuizGenerator
	retry        *resilience.RetryConfig
}

// Output is the result of one run
type Output struct {
	Transcript     string
	Summary        string
	Quiz           string
	Language       string
	SpeechDetected bool
	Audio          storage.AudioInfo
}

// New creates a pipeline
func New(provider stt.Provider, summarizer ai.Summarizer, quizzer ai.QuizGenerator, opts Options) *Pipeline {
	retry := opts.Retry
	if retry == nil {
		retry = &resilience.RetryConfig{MaxAttempts: 1}
	}
	noSpeech := opts.NoSpeechQuiz
	if noSpeech == nil {
		noSpeech = &ai.TemplateQuiz{SnippetChars: ai.TemplateSnippetChars}
	}
	return &Pipeline{
		provider:     provider,
		summarizer:   summarizer,
		quizzer:      quizzer,
		noSpeechQuiz: noSpeech,
		retry:        retry,
	}
}

// Run processes one stored upload
func (p *Pipeline) Run(ctx context.Context, upload *storage.Upload) (*Output, error) {
	if upload == nil || upload.Path == "" {
		return nil, fmt.Errorf("%w: no audio file", ErrValidation)
	}
	log := observability.FromContext(ctx)

	out := &Output{Audio: storage.Probe(upload)}
	if out.Audio.DurationSeconds != nil {
		log.Debug().Float64("audio_seconds", *out.Audio.DurationSeconds).Msg("Audio probed")
	}

	var transcription *stt.Result
	err := p.stage(ctx, StageTranscribe, p.provider.Name(), func(ctx context.Context) error {
		res, err := p.provider.Transcribe(ctx, upload.Path)
		if err != nil {
			return err
		}
		transcription = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Transcript = transcription.Transcript
	out.Language = transcription.Language
	out.SpeechDetected = ai.HasSpeech(out.Transcript)

	if !out.SpeechDetected {
		log.Info().Int("chars", len(out.Transcript)).Msg("No speech detected, skipping models")
		out.Summary = ai.NoSpeechPlaceholder
		quiz, err := p.noSpeechQuiz.GenerateQuiz(ctx, out.Summary, out.Transcript)
		if err != nil {
			return nil, &StageError{Stage: StageQuiz, Backend: p.noSpeechQuiz.Name(), Err: err}
		}
		out.Quiz = quiz
		return out, nil
	}

	err = p.stage(ctx, StageSummarize, p.summarizer.Name(), func(ctx context.Context) error {
		summary, err := p.summarizer.Summarize(ctx, out.Transcript)
		if err != nil {
			return err
		}
		out.Summary = summary
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageQuiz, p.quizzer.Name(), func(ctx context.Context) error {
		quiz, err := p.quizzer.GenerateQuiz(ctx, out.Summary, out.Transcript)
		if err != nil {
			return err
		}
		out.Quiz = quiz
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// stage runs fn with retries, records its latency and wraps failures in a StageError
func (p *Pipeline) stage(ctx context.Context, name, backend string, fn resilience.RetryableFunc) error {
	log := observability.FromContext(ctx)
	start := time.Now()

	err := resilience.Retry(ctx, p.retry, resilience.ShouldRetry, fn)
	elapsed := time.Since(start)
	observability.RecordStage(name, backend, elapsed, err)

	if err != nil {
		log.Error().Err(err).
			Str("stage", name).
			Str("backend", backend).
			Dur("duration", elapsed).
			Msg("Pipeline stage failed")
		return &StageError{Stage: name, Backend: backend, Err: err}
	}

	log.Debug().
		Str("stage", name).
		Str("backend", backend).
		Dur("duration", elapsed).
		Msg("Pipeline stage finished")
	return nil
}
