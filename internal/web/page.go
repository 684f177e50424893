package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"itinerary/internal/agenda"
	appLog "itinerary/internal/log"
	"itinerary/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var dayTemplate = template.Must(template.ParseFS(templateFS, "templates/day.html"))

type pageEvent struct {
	ID          string
	Title       string
	Description string
	Start       string
	End         string
}

type dayPage struct {
	Day    model.DayKey
	Title  string
	Prev   model.DayKey
	Next   model.DayKey
	Empty  string
	Events []pageEvent
}

// handleDayPage renders one day as a static HTML page. The root element
// carries data-ready="true" so headless captures know it is complete.
func (s *Server) handleDayPage(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	st := s.current()

	page := dayPage{Day: day, Title: day.String(), Empty: agenda.EmptyDayText}
	if t, err := day.Time(st.loc); err == nil {
		page.Title = t.Format("Monday, January 2")
	}
	page.Prev, _ = day.AddDays(-1)
	page.Next, _ = day.AddDays(1)

	for _, ev := range s.sched.List(day) {
		page.Events = append(page.Events, pageEvent{
			ID:          ev.ID,
			Title:       ev.Title,
			Description: ev.Description,
			Start:       ev.Start.Format(st.cfg.TimeFormat),
			End:         ev.End.Format(st.cfg.TimeFormat),
		})
	}

	// Render into a buffer so a template error never yields a half page.
	var buf bytes.Buffer
	if err := dayTemplate.Execute(&buf, page); err != nil {
		appLog.Error("failed to render day page", err, "day", day)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
