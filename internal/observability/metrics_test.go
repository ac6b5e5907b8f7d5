package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRun("generate", "completed", time.Second)
	m.IncSlotExhausted("normal-random")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestWritePrometheusExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveRun("generate", "completed", 2*time.Second)
	m.ObserveCompose(100 * time.Millisecond)
	m.IncSlotExhausted("normal-random")
	m.IncSlotExhausted("normal-random")

	if got := m.slotsExhausted.Value("normal-random"); got != 2 {
		t.Fatalf("slots exhausted: want 2 got %v", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`hermes_runs_total{job_type="generate",status="completed"} 1.000000`,
		`hermes_run_duration_seconds_bucket{job_type="generate",status="completed",le="5"} 1`,
		`hermes_artworks_created_total 1.000000`,
		`hermes_slots_exhausted_total{strategy="normal-random"} 2.000000`,
		`hermes_compose_duration_seconds_count 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, out)
		}
	}
}
