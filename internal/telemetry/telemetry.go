package telemetry

import (
	"fmt"
	"math"
	"time"

	"github.com/prometheus/procfs"

	"lecturenotes/internal/model"
)

// CPUTimes is a cumulative snapshot of system CPU time, in seconds
type CPUTimes struct {
	Busy  float64
	Total float64
}

// CPUSampler reads cumulative CPU counters
type CPUSampler interface {
	Sample() (CPUTimes, error)
}

// ProcSampler reads system-wide CPU counters from /proc/stat
type ProcSampler struct {
	fs procfs.FS
}

// NewProcSampler opens the default /proc mount
func NewProcSampler() (*ProcSampler, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}
	return &ProcSampler{fs: fs}, nil
}

// Sample returns the current cumulative busy and total CPU seconds
func (p *ProcSampler) Sample() (CPUTimes, error) {
	stat, err := p.fs.Stat()
	if err != nil {
		return CPUTimes{}, fmt.Errorf("failed to read /proc/stat: %w", err)
	}
	c := stat.CPUTotal
	idle := c.Idle + c.Iowait
	total := c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ + c.Steal
	return CPUTimes{Busy: total - idle, Total: total}, nil
}

// Tracker produces per-request metrics. The CPU figure is the system busy
// percentage over the window between Start and Finish.
type Tracker struct {
	sampler          CPUSampler
	referenceSeconds float64
	now              func() time.Time
}

// NewTracker creates a tracker. sampler may be nil, in which case cpu_usage is 0.
func NewTracker(sampler CPUSampler, referenceSeconds float64) *Tracker {
	return &Tracker{
		sampler:          sampler,
		referenceSeconds: referenceSeconds,
		now:              time.Now,
	}
}

// Span is one measurement window
type Span struct {
	tracker  *Tracker
	start    time.Time
	cpuStart CPUTimes
	cpuOK    bool
}

// Start opens a measurement window
func (t *Tracker) Start() *Span {
	s := &Span{tracker: t, start: t.now()}
	if t.sampler != nil {
		if times, err := t.sampler.Sample(); err == nil {
			s.cpuStart = times
			s.cpuOK = true
		}
	}
	return s
}

// Elapsed returns the wall-clock time since the span started
func (s *Span) Elapsed() time.Duration {
	return s.tracker.now().Sub(s.start)
}

// Finish closes the window and computes the metrics record
func (s *Span) Finish() model.Metrics {
	elapsed := s.Elapsed().Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	inference := Round(elapsed, 2)

	var cpu float64
	if s.cpuOK {
		if end, err := s.tracker.sampler.Sample(); err == nil {
			cpu = BusyPercent(s.cpuStart, end)
		}
	}

	return model.Metrics{
		InferenceTime:   inference,
		CPUUsage:        Round(cpu, 1),
		ProcessingSpeed: ProcessingSpeed(s.tracker.referenceSeconds, inference),
	}
}

// BusyPercent returns the busy share of CPU time between two snapshots
func BusyPercent(start, end CPUTimes) float64 {
	total := end.Total - start.Total
	busy := end.Busy - start.Busy
	if total <= 0 || busy < 0 {
		return 0
	}
	return math.Min(100, busy/total*100)
}

// ProcessingSpeed is reference/inference rounded to one decimal, 0 when inference is not positive
func ProcessingSpeed(referenceSeconds, inferenceSeconds float64) float64 {
	if inferenceSeconds <= 0 {
		return 0
	}
	return Round(referenceSeconds/inferenceSeconds, 1)
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
