package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// StageMetrics counts row outcomes, LLM spend and run durations of the batch
// stages. A batch process exits after one run, so the registry is pushed to a
// Pushgateway instead of being scraped.
type StageMetrics struct {
	registry *prometheus.Registry
	service  string

	rowsTotal   *prometheus.CounterVec
	costTotal   prometheus.Counter
	runDuration *prometheus.HistogramVec
	lastRun     *prometheus.GaugeVec
}

func NewStageMetrics(service string) *StageMetrics {
	registry := prometheus.NewRegistry()

	rowsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "avs",
			Subsystem: "pipeline",
			Name:      "rows_total",
			Help:      "Rows handled by stage and outcome (succeeded, skipped or an error kind).",
		},
		[]string{"service", "stage", "outcome"},
	)
	costTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "avs",
			Subsystem: "llm",
			Name:      "estimated_cost_total",
			Help:      "Estimated LLM spend recorded in ocr_api_cost.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "avs",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Stage run duration in seconds by result.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"service", "stage", "result"},
	)
	lastRun := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "avs",
			Subsystem: "pipeline",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the stage last finished by result.",
		},
		[]string{"service", "stage", "result"},
	)

	registry.MustRegister(rowsTotal, costTotal, runDuration, lastRun)

	return &StageMetrics{
		registry:    registry,
		service:     service,
		rowsTotal:   rowsTotal,
		costTotal:   costTotal,
		runDuration: runDuration,
		lastRun:     lastRun,
	}
}

func (m *StageMetrics) Registry() *prometheus.Registry { return m.registry }

func (m *StageMetrics) Row(stage, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.rowsTotal.WithLabelValues(m.service, stage, outcome).Inc()
}

func (m *StageMetrics) Cost(amount float64) {
	if amount <= 0 {
		return
	}
	m.costTotal.Add(amount)
}

func (m *StageMetrics) Finished(stage string, d time.Duration, aborted bool) {
	result := "ok"
	if aborted {
		result = "aborted"
	}
	m.runDuration.WithLabelValues(m.service, stage, result).Observe(d.Seconds())
	m.lastRun.WithLabelValues(m.service, stage, result).SetToCurrentTime()
}

// Push sends the registry to the Pushgateway at url under job. An empty url is
// a no-op.
func (m *StageMetrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	// the service label already sits on every series, so no grouping key
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}
