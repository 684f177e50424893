package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"itinerary/internal/config"
	"itinerary/internal/ics"
	appLog "itinerary/internal/log"
	"itinerary/internal/metric"
	"itinerary/internal/model"
	"itinerary/internal/schedule"
)

// Server exposes the schedule over HTTP: a JSON API, an HTML day page,
// iCalendar export/import and Prometheus metrics.
type Server struct {
	sched   *schedule.Schedule
	metrics *metric.Metrics
	clocks  *model.ClockParser
	fetcher *ics.Fetcher
	mux     *http.ServeMux

	settings atomic.Pointer[settings]

	// now is replaceable for tests.
	now func() time.Time
}

// settings is the hot-reloadable part of the configuration.
type settings struct {
	cfg     *config.Config
	loc     *time.Location
	limiter *rate.Limiter // nil means unlimited
}

// NewServer constructs a new Server. metrics may be nil.
func NewServer(cfg *config.Config, sched *schedule.Schedule, metrics *metric.Metrics) *Server {
	s := &Server{
		sched:   sched,
		metrics: metrics,
		clocks:  model.NewClockParser(),
		fetcher: ics.NewFetcher(time.Duration(cfg.Import.TimeoutSec) * time.Second),
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.ApplyConfig(cfg)
	s.registerRoutes()
	return s
}

// ApplyConfig swaps auth, time format, timezone and the write limiter.
// It is safe to call while serving.
func (s *Server) ApplyConfig(cfg *config.Config) {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
	}
	st := &settings{cfg: cfg, loc: loc}
	if rps := cfg.API.WriteRatePerSec; rps > 0 {
		st.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	s.settings.Store(st)
}

func (s *Server) current() *settings { return s.settings.Load() }

// Handler returns the root handler with auth and rate limiting applied.
func (s *Server) Handler() http.Handler {
	return s.basicAuthMiddleware(s.writeLimitMiddleware(s.mux))
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("GET /api/days", s.handleDays)
	s.mux.HandleFunc("GET /api/days/{day}/events", s.handleList)
	s.mux.HandleFunc("POST /api/days/{day}/events", s.handleAdd)
	s.mux.HandleFunc("PUT /api/days/{day}/events/{id}", s.handleUpdate)
	s.mux.HandleFunc("DELETE /api/days/{day}/events/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /api/days/{day}/calendar.ics", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)

	s.mux.HandleFunc("GET /day/{day}", s.handleDayPage)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

// basicAuthMiddleware protects everything except /health when basic auth
// is configured. The check reads the current settings per request so a
// config reload takes effect immediately.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := s.current().cfg.BasicAuth
		if auth == nil || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, auth.Username) || !secureCompare(p, auth.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Itinerary", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if l := s.current().limiter; l != nil && !l.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many write requests")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.current().cfg.Listen
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleIndex redirects to today's page in the configured timezone.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	today := model.DayKeyOf(s.now().In(s.current().loc))
	http.Redirect(w, r, "/day/"+today.String(), http.StatusFound)
}
