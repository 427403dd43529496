package telemetry

import (
	"errors"
	"testing"
	"time"
)

type fakeSampler struct {
	samples []CPUTimes
	err     error
	calls   int
}

func (f *fakeSampler) Sample() (CPUTimes, error) {
	if f.err != nil {
		return CPUTimes{}, f.err
	}
	s := f.samples[f.calls%len(f.samples)]
	f.calls++
	return s, nil
}

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestSpanFinish(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sampler := &fakeSampler{samples: []CPUTimes{
		{Busy: 100, Total: 400},
		{Busy: 130, Total: 500},
	}}
	tracker := NewTracker(sampler, 30)
	tracker.now = fixedClock(base, base.Add(2500*time.Millisecond))

	metrics := tracker.Start().Finish()

	if metrics.InferenceTime != 2.5 {
		t.Errorf("Expected inference_time 2.5, got %v", metrics.InferenceTime)
	}
	if metrics.ProcessingSpeed != 12 {
		t.Errorf("Expected processing_speed 12, got %v", metrics.ProcessingSpeed)
	}
	if metrics.CPUUsage != 30 {
		t.Errorf("Expected cpu_usage 30, got %v", metrics.CPUUsage)
	}
}

func TestSpanFinish_NoSampler(t *testing.T) {
	base := time.Now()
	tracker := NewTracker(nil, 30)
	tracker.now = fixedClock(base, base.Add(3*time.Second))

	metrics := tracker.Start().Finish()
	if metrics.CPUUsage != 0 {
		t.Errorf("Expected cpu_usage 0 without a sampler, got %v", metrics.CPUUsage)
	}
	if metrics.ProcessingSpeed != 10 {
		t.Errorf("Expected processing_speed 10, got %v", metrics.ProcessingSpeed)
	}
}

func TestSpanFinish_SamplerError(t *testing.T) {
	base := time.Now()
	tracker := NewTracker(&fakeSampler{err: errors.New("no /proc")}, 30)
	tracker.now = fixedClock(base, base.Add(time.Second))

	metrics := tracker.Start().Finish()
	if metrics.CPUUsage != 0 {
		t.Errorf("Expected cpu_usage 0 on sampler error, got %v", metrics.CPUUsage)
	}
}

func TestSpanFinish_ZeroDuration(t *testing.T) {
	base := time.Now()
	tracker := NewTracker(nil, 30)
	tracker.now = fixedClock(base, base.Add(time.Millisecond))

	metrics := tracker.Start().Finish()
	if metrics.InferenceTime != 0 {
		t.Errorf("Expected inference_time to round to 0, got %v", metrics.InferenceTime)
	}
	if metrics.ProcessingSpeed != 0 {
		t.Errorf("Expected processing_speed 0 when inference_time is 0, got %v", metrics.ProcessingSpeed)
	}
}

func TestSpanFinish_ClockSkew(t *testing.T) {
	base := time.Now()
	tracker := NewTracker(nil, 30)
	tracker.now = fixedClock(base, base.Add(-time.Second))

	metrics := tracker.Start().Finish()
	if metrics.InferenceTime < 0 {
		t.Errorf("Expected non-negative inference_time, got %v", metrics.InferenceTime)
	}
}

func TestProcessingSpeed(t *testing.T) {
	tests := []struct {
		inference float64
		expected  float64
	}{
		{0, 0},
		{-1, 0},
		{1, 30},
		{7, 4.3},
		{0.37, 81.1},
		{45.12, 0.7},
	}

	for _, tt := range tests {
		if got := ProcessingSpeed(30, tt.inference); got != tt.expected {
			t.Errorf("ProcessingSpeed(30, %v): expected %v, got %v", tt.inference, tt.expected, got)
		}
	}
}

func TestBusyPercent(t *testing.T) {
	tests := []struct {
		name     string
		start    CPUTimes
		end      CPUTimes
		expected float64
	}{
		{"half busy", CPUTimes{Busy: 10, Total: 20}, CPUTimes{Busy: 20, Total: 40}, 50},
		{"no elapsed ticks", CPUTimes{Busy: 10, Total: 20}, CPUTimes{Busy: 10, Total: 20}, 0},
		{"counter reset", CPUTimes{Busy: 10, Total: 20}, CPUTimes{Busy: 5, Total: 30}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BusyPercent(tt.start, tt.end); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
