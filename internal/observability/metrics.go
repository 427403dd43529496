package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lecturenotes_requests_total",
		Help: "Total number of process-audio requests by outcome",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lecturenotes_request_duration_seconds",
		Help:    "End-to-end process-audio latency in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lecturenotes_stage_latency_seconds",
		Help:    "Pipeline stage latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage", "backend"})

	stageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lecturenotes_stage_errors_total",
		Help: "Total number of pipeline stage failures",
	}, []string{"stage", "backend"})

	uploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lecturenotes_upload_bytes_total",
		Help: "Total audio bytes accepted for processing",
	})

	cpuUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lecturenotes_cpu_usage_percent",
		Help: "CPU busy percentage over the last request window",
	})
)

// RecordRequest records the outcome and duration of one request
func RecordRequest(status string, duration time.Duration) {
	requestsTotal.WithLabelValues(status).Inc()
	requestDuration.Observe(duration.Seconds())
}

// RecordStage records the latency and outcome of a pipeline stage
func RecordStage(stage, backend string, duration time.Duration, err error) {
	stageLatency.WithLabelValues(stage, backend).Observe(duration.Seconds())
	if err != nil {
		stageErrors.WithLabelValues(stage, backend).Inc()
	}
}

// RecordUpload records accepted upload bytes
func RecordUpload(size int64) {
	uploadBytes.Add(float64(size))
}

// RecordCPU stores the last sampled CPU usage
func RecordCPU(percent float64) {
	cpuUsage.Set(percent)
}
