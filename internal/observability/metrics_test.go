package observability

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CycleFinished(nil)
	m.Dispatch("dispatched")
	m.RunFinished("COMPLETE", time.Second)
	m.RunSkipped("no_qa_pairs")
	m.Result("passed")
	m.IngestionFile(true)
	m.IngestionFinished("completed")
	m.LLMRequest("judge_helpfulness", nil, time.Second)
	m.QueueDepth("monitor", 1)
	m.TaskFinished("monitor", false)
	m.HTTPRequest("GET", "/health", 200, time.Millisecond)
}

func TestCountersRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.CycleFinished(nil)
	m.CycleFinished(errors.New("db down"))
	m.CycleFinished(nil)

	expected := `
		# HELP benchwatch_monitor_cycles_total Total number of monitor scans by status
		# TYPE benchwatch_monitor_cycles_total counter
		benchwatch_monitor_cycles_total{status="error"} 1
		benchwatch_monitor_cycles_total{status="ok"} 2
	`
	if err := testutil.CollectAndCompare(m.CyclesTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric value: %v", err)
	}

	m.Result("passed")
	m.Result("unanswered")
	m.Result("passed")
	if got := testutil.ToFloat64(m.ResultsTotal.WithLabelValues("passed")); got != 2 {
		t.Errorf("passed results = %v, want 2", got)
	}

	m.RunSkipped("no_qa_pairs")
	m.RunSkipped("no_qa_pairs")
	if got := testutil.ToFloat64(m.RunsSkippedTotal.WithLabelValues("no_qa_pairs")); got != 2 {
		t.Errorf("skipped runs = %v, want 2", got)
	}

	m.TaskFinished("ingestion", true)
	if got := testutil.ToFloat64(m.TasksTotal.WithLabelValues("ingestion", "panic")); got != 1 {
		t.Errorf("panicked tasks = %v, want 1", got)
	}

	m.QueueDepth("monitor", 7)
	if got := testutil.ToFloat64(m.PendingJobs.WithLabelValues("monitor")); got != 7 {
		t.Errorf("queue depth = %v, want 7", got)
	}
}

func TestRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	NewMetrics(reg)
}
