package metric

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"itinerary/internal/model"
	"itinerary/internal/schedule"
)

func TestHookCountsResults(t *testing.T) {
	t.Parallel()
	m := New()
	s := schedule.New(schedule.WithHook(m.Hook()))
	m.Track(s)

	day := model.DayKey("2025-06-01")
	ev, _ := s.Add(day, model.Draft{Title: "A", Start: model.MustClock(9, 0), End: model.MustClock(10, 0)})
	_, _ = s.Add(day, model.Draft{Title: "bad", Start: model.MustClock(10, 0), End: model.MustClock(9, 0)})
	_ = s.Delete(day, "missing")

	if got := testutil.ToFloat64(m.Operations.WithLabelValues("add", ResultOK)); got != 1 {
		t.Fatalf("add/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("add", ResultInvalidInterval)); got != 1 {
		t.Fatalf("add/invalid_interval = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("delete", ResultNotFound)); got != 1 {
		t.Fatalf("delete/not_found = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Events); got != 1 {
		t.Fatalf("events gauge = %v, want 1", got)
	}

	_ = s.Delete(day, ev.ID)
	if got := testutil.ToFloat64(m.Events); got != 0 {
		t.Fatalf("events gauge after delete = %v, want 0", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()
	m := New()
	m.Operations.WithLabelValues("add", ResultOK).Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `itinerary_schedule_operations_total{op="add",result="ok"} 1`) {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
	if !strings.Contains(string(body), "itinerary_schedule_events 0") {
		t.Fatalf("metrics output missing gauge:\n%s", body)
	}
}
