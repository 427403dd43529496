package stt

import "context"

// Provider turns a recorded audio file into text
type Provider interface {
	// Transcribe transcribes the audio file at audioPath. Silence is not an
	// error: it yields a result with an empty transcript.
	Transcribe(ctx context.Context, audioPath string) (*Result, error)

	// Name returns the name of the provider (e.g., "openai", "fpt")
	Name() string
}
