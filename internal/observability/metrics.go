// Package observability exposes the service's Prometheus metrics.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// CyclesTotal counts monitor scans.
	// Labels: status (ok|error)
	CyclesTotal *prometheus.CounterVec

	// DispatchTotal counts per-project dispatch decisions of a scan.
	// Labels: result (dispatched|locked|lock_error|rejected|stale)
	DispatchTotal *prometheus.CounterVec

	// RunsTotal counts finished test runs.
	// Labels: state (COMPLETE|FAILED|TIMEOUT|PANIC)
	RunsTotal *prometheus.CounterVec

	// RunsSkippedTotal counts runs that found nothing to test.
	// Labels: reason (no_qa_pairs)
	RunsSkippedTotal *prometheus.CounterVec

	// RunDuration measures test run wall time in seconds.
	RunDuration prometheus.Histogram

	// ResultsTotal counts QA pairs exercised, by outcome.
	// Labels: outcome (passed|failed|unanswered|judge_error)
	ResultsTotal *prometheus.CounterVec

	// IngestionFilesTotal counts ingested files.
	// Labels: result (processed|failed)
	IngestionFilesTotal *prometheus.CounterVec

	// IngestionsTotal counts finished ingestion runs by final state.
	IngestionsTotal *prometheus.CounterVec

	// LLMRequestsTotal counts collaborator calls.
	// Labels: purpose, status (success|error)
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestDuration measures collaborator latency in seconds.
	// Labels: purpose
	LLMRequestDuration *prometheus.HistogramVec

	// PendingJobs is the number of queued jobs per worker pool.
	PendingJobs *prometheus.GaugeVec

	// TasksTotal counts worker pool tasks.
	// Labels: pool, result (ok|panic)
	TasksTotal *prometheus.CounterVec

	// HTTPRequestDuration measures API latency.
	// Labels: method, route, status_code
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchwatch_monitor_cycles_total",
				Help: "Total number of monitor scans by status",
			},
			[]string{"status"},
		),
		DispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchwatch_monitor_dispatch_total",
				Help: "Per-project dispatch decisions taken by monitor scans",
			},
			[]string{"result"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchwatch_test_runs_total",
				Help: "Total number of finished test runs by final state",
			},
			[]string{"state"},
		),
		RunsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchwatch_test_runs_skipped_total",
				Help: "Test runs that had nothing to exercise, by reason",
			},
			[]string{"reason"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "benchwatch_test_run_duration_seconds",
				Help:    "Duration of test runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		ResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchwatch_test_results_total",
				Help: "QA pairs exercised against targets by outcome",
			},
			[]string{"outcome"},
		),
		IngestionFilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchwatch_ingestion_files_total",
				Help: "Files handled by ingestion runs",
			},
			[]string{"result"},
		),
		IngestionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchwatch_ingestions_total",
				Help: "Finished ingestion runs by final state",
			},
			[]string{"state"},
		),
		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchwatch_llm_requests_total",
				Help: "Generative and judging collaborator calls by purpose and status",
			},
			[]string{"purpose", "status"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "benchwatch_llm_request_duration_seconds",
				Help:    "Duration of collaborator calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"purpose"},
		),
		PendingJobs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "benchwatch_worker_queue_depth",
				Help: "Pending jobs per worker pool",
			},
			[]string{"pool"},
		),
		TasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchwatch_worker_tasks_total",
				Help: "Tasks executed per worker pool",
			},
			[]string{"pool", "result"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "benchwatch_http_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route", "status_code"},
		),
	}
}

func (m *Metrics) CycleFinished(err error) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) Dispatch(result string) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RunFinished(state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(state).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RunSkipped(reason string) {
	if m == nil {
		return
	}
	m.RunsSkippedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) Result(outcome string) {
	if m == nil {
		return
	}
	m.ResultsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IngestionFile(ok bool) {
	if m == nil {
		return
	}
	result := "processed"
	if !ok {
		result = "failed"
	}
	m.IngestionFilesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IngestionFinished(state string) {
	if m == nil {
		return
	}
	m.IngestionsTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) LLMRequest(purpose string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(purpose, status(err)).Inc()
	m.LLMRequestDuration.WithLabelValues(purpose).Observe(elapsed.Seconds())
}

// QueueDepth and TaskFinished satisfy worker.Observer.
func (m *Metrics) QueueDepth(pool string, depth int) {
	if m == nil {
		return
	}
	m.PendingJobs.WithLabelValues(pool).Set(float64(depth))
}

func (m *Metrics) TaskFinished(pool string, panicked bool) {
	if m == nil {
		return
	}
	result := "ok"
	if panicked {
		result = "panic"
	}
	m.TasksTotal.WithLabelValues(pool, result).Inc()
}

func (m *Metrics) HTTPRequest(method, route string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(statusCode)).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
