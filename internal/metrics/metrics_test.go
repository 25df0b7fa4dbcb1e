package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Rescan()
	m.Observation("file")
	m.InspectFailure("not_found")
	m.TrackRegistered()
	m.Transition("waiting")
	m.StageFinished("loading", "ok", time.Second)
	m.Command("ffmpeg", 0)
	m.TaskStarted()
	m.TaskFinished()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("nil handler status = %d", rec.Code)
	}
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.Observation("member")
	m.Observation("member")
	m.Command("bsdtar", 1)
	m.Transition("failed")

	if got := testutil.ToFloat64(m.observations.WithLabelValues("member")); got != 2 {
		t.Fatalf("member observations = %v", got)
	}
	if got := testutil.ToFloat64(m.commands.WithLabelValues("bsdtar", "failed")); got != 1 {
		t.Fatalf("failed bsdtar commands = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `wspsr_pipeline_status_transitions_total{status="failed"} 1`) {
		t.Fatalf("exposition missing transition counter:\n%s", body)
	}
}
