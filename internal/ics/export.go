package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"itinerary/internal/model"
)

const productID = "-//itinerary//trip scheduler//EN"

// Export renders the events of one day as a VCALENDAR. Times are placed
// on day in loc.
func Export(day model.DayKey, events []model.Event, loc *time.Location, now time.Time) (string, error) {
	midnight, err := day.Time(loc)
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName("Itinerary " + day.String())

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now.UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		ve.SetStartAt(ev.Start.On(midnight))
		ve.SetEndAt(ev.End.On(midnight))
	}
	return cal.Serialize(), nil
}
