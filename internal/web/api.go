package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	"itinerary/internal/config"
	"itinerary/internal/ics"
	appLog "itinerary/internal/log"
	"itinerary/internal/model"
	"itinerary/internal/schedule"
)

const maxRequestBytes = 1 << 20

// eventRequest is the body of POST/PUT event calls. Times are strings so
// both "14:30" and "2:30 pm" style input is accepted.
type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type eventsResponse struct {
	Day    model.DayKey  `json:"day"`
	Events []model.Event `json:"events"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// pathDay parses the {day} path value, writing a 400 when malformed.
func pathDay(w http.ResponseWriter, r *http.Request) (model.DayKey, bool) {
	day, err := model.ParseDayKey(r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
		return "", false
	}
	return day, true
}

func (s *Server) decodeDraft(w http.ResponseWriter, r *http.Request) (model.Draft, bool) {
	var req eventRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return model.Draft{}, false
	}

	start, err := s.clocks.Parse(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "start: "+err.Error())
		return model.Draft{}, false
	}
	end, err := s.clocks.Parse(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "end: "+err.Error())
		return model.Draft{}, false
	}
	return model.Draft{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Start:       start,
		End:         end,
	}, true
}

func (s *Server) handleDays(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Days())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Day: day, Events: s.sched.List(day)})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	d, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	ev, err := s.sched.Add(day, d)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	appLog.Debug("event added", "day", day, "id", ev.ID)
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	d, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	ev, err := s.sched.Update(day, r.PathValue("id"), d)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	appLog.Debug("event updated", "day", day, "id", ev.ID)
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	if err := s.sched.Delete(day, r.PathValue("id")); err != nil {
		writeScheduleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	out, err := ics.Export(day, s.sched.List(day), s.current().loc, s.now())
	if err != nil {
		appLog.Error("ics export failed", err, "day", day)
		writeError(w, http.StatusInternalServerError, "export_failed", "failed to export calendar")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="itinerary-%s.ics"`, day))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

type importRequest struct {
	URL string `json:"url"`
}

// handleImport adds events from an ICS payload.
//
// POST /api/import?from=2025-06-01&to=2025-06-14
//   - Content-Type text/calendar: the body is the calendar.
//   - otherwise a JSON body {"url": "https://..."} names a feed to fetch.
//   - from: first day of the expansion window (default today)
//   - to: last day, inclusive (default from + import.horizon_days)
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	st := s.current()
	q := r.URL.Query()

	from := model.DayKeyOf(s.now().In(st.loc))
	if v := q.Get("from"); v != "" {
		day, err := model.ParseDayKey(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
			return
		}
		from = day
	}
	rangeStart, err := from.Time(st.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
		return
	}
	rangeEnd := rangeStart.AddDate(0, 0, st.cfg.Import.HorizonDays)
	if v := q.Get("to"); v != "" {
		day, err := model.ParseDayKey(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
			return
		}
		last, _ := day.Time(st.loc)
		if last.Before(rangeStart) {
			writeError(w, http.StatusBadRequest, "invalid_range", "to is before from")
			return
		}
		rangeEnd = last.AddDate(0, 0, 1)
	}

	src := ics.Source{ID: "upload"}
	var body []byte
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "text/calendar" {
		b, err := io.ReadAll(io.LimitReader(r.Body, 8*maxRequestBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		body = b
	} else {
		var req importRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil || req.URL == "" {
			writeError(w, http.StatusBadRequest, "invalid_body", "expected text/calendar body or {\"url\": ...}")
			return
		}
		if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			writeError(w, http.StatusBadRequest, "invalid_url", "url must be an absolute http or https URL")
			return
		}
		if !urlImportAllowed(st.cfg) {
			writeError(w, http.StatusForbidden, "url_import_disabled",
				"URL imports need basic_auth when listening beyond loopback; upload the calendar as text/calendar instead")
			return
		}
		src = ics.Source{ID: "feed", URL: req.URL}
		res, err := s.fetcher.FetchOne(r.Context(), src)
		if err != nil {
			appLog.Error("ics import fetch failed", err)
			writeError(w, http.StatusBadGateway, "fetch_failed", err.Error())
			return
		}
		body = res.Body
	}

	res, err := ics.ImportCalendar(s.sched, src, body, ics.ExpandConfig{
		DisplayLocation:        st.loc,
		RangeStart:             rangeStart,
		RangeEnd:               rangeEnd,
		MaxOccurrencesPerEvent: st.cfg.Import.MaxOccurrencesPerEvent,
	})
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) || errors.Is(err, schedule.ErrInvalidInterval) {
			writeScheduleError(w, err)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "invalid_calendar", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// urlImportAllowed reports whether the server may fetch caller-supplied
// URLs: only behind basic auth or on a loopback listener.
func urlImportAllowed(cfg *config.Config) bool {
	if cfg.BasicAuth != nil {
		return true
	}
	host, _, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		host = cfg.Listen
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// writeScheduleError maps scheduler errors to HTTP statuses.
func writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidInterval):
		writeError(w, http.StatusUnprocessableEntity, "invalid_interval", err.Error())
	case errors.Is(err, schedule.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		appLog.Error("schedule operation failed", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}
