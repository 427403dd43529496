package model

// Metrics is the per-request telemetry returned alongside the pipeline output
type Metrics struct {
	InferenceTime   float64  `json:"inference_time"`   // seconds, 2 decimals
	CPUUsage        float64  `json:"cpu_usage"`        // percent, 1 decimal
	ProcessingSpeed float64  `json:"processing_speed"` // reference seconds / inference_time, 1 decimal
	AudioSeconds    *float64 `json:"audio_seconds,omitempty"`
}

// ProcessResponse is the body of a successful POST /process-audio
type ProcessResponse struct {
	Transcript string   `json:"transcript"`
	Summary    string   `json:"summary"`
	Quiz       string   `json:"quiz"`
	Metrics    *Metrics `json:"metrics,omitempty"`
}
