package metric

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"itinerary/internal/model"
	"itinerary/internal/schedule"
)

// Result labels for itinerary_schedule_operations_total.
const (
	ResultOK              = "ok"
	ResultInvalidInterval = "invalid_interval"
	ResultNotFound        = "not_found"
	ResultError           = "error"
)

// Metrics holds the scheduler collectors on their own registry so tests
// and multiple servers in one process do not collide.
type Metrics struct {
	Registry   *prometheus.Registry
	Operations *prometheus.CounterVec
	Events     prometheus.GaugeFunc

	src atomic.Pointer[Counter]
}

// Counter is the subset of the schedule Metrics reads the event total from.
type Counter interface {
	Len() int
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	m := &Metrics{Registry: reg}
	m.Operations = f.NewCounterVec(prometheus.CounterOpts{
		Name: "itinerary_schedule_operations_total",
		Help: "Scheduler mutations by operation and result",
	}, []string{"op", "result"})
	m.Events = f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "itinerary_schedule_events",
		Help: "Events currently held by the scheduler",
	}, func() float64 {
		src := m.src.Load()
		if src == nil {
			return 0
		}
		return float64((*src).Len())
	})
	reg.MustRegister(collectors.NewGoCollector())
	return m
}

// Track makes the events gauge read from src.
func (m *Metrics) Track(src Counter) {
	m.src.Store(&src)
}

// Hook returns a schedule hook that counts every mutation.
func (m *Metrics) Hook() schedule.Hook {
	return func(op schedule.Op, _ model.DayKey, err error) {
		m.Operations.WithLabelValues(string(op), Result(err)).Inc()
	}
}

// Result maps a scheduler error to its label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, schedule.ErrInvalidInterval):
		return ResultInvalidInterval
	case errors.Is(err, schedule.ErrNotFound):
		return ResultNotFound
	default:
		return ResultError
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
