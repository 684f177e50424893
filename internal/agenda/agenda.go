package agenda

import (
	"strings"

	"itinerary/internal/model"
)

// DefaultTimeLayout renders times like 9:05 AM.
const DefaultTimeLayout = "3:04 PM"

// EmptyDayText is shown for a day without events.
const EmptyDayText = "No events scheduled."

// FormatRow renders "9:00 AM - 10:00 AM  Title". An empty layout means
// DefaultTimeLayout.
func FormatRow(ev model.Event, layout string) string {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return ev.Start.Format(layout) + " - " + ev.End.Format(layout) + "  " + ev.Title
}

// Digest renders a day header followed by one row per event (and an
// indented description line when present). events are expected in list
// order.
func Digest(day model.DayKey, events []model.Event, layout string) string {
	var b strings.Builder
	b.WriteString(day.String())
	b.WriteString("\n")
	if len(events) == 0 {
		b.WriteString("  ")
		b.WriteString(EmptyDayText)
		b.WriteString("\n")
		return b.String()
	}
	for _, ev := range events {
		b.WriteString("  ")
		b.WriteString(FormatRow(ev, layout))
		b.WriteString("\n")
		if desc := strings.TrimSpace(ev.Description); desc != "" {
			b.WriteString("      ")
			b.WriteString(desc)
			b.WriteString("\n")
		}
	}
	return b.String()
}
