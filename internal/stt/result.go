package stt

// Result represents the result of a speech-to-text transcription
type Result struct {
	Transcript  string  // The transcribed text, trimmed
	Confidence  float64 // Confidence score (0.0-1.0), 0 if not provided
	Provider    string  // The provider used (e.g., "openai", "deepgram")
	Language    string  // Detected or requested language, if known
	RawResponse string  // Raw response from the provider, for debug logging
}
