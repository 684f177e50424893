package ics

import (
	"errors"

	appLog "itinerary/internal/log"
	"itinerary/internal/model"
	"itinerary/internal/schedule"
)

// Store is the part of the schedule an import writes to.
type Store interface {
	AddIfAbsent(day model.DayKey, d model.Draft, dup func(model.Event) bool) (model.Event, bool, error)
}

// ImportResult counts what happened to each occurrence.
type ImportResult struct {
	Added      int `json:"added"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

// Import adds timed occurrences that start and end on the same day.
// All-day, multi-day and empty occurrences are skipped, as are exact
// duplicates (same title, start and end) already stored on that day, so
// importing a feed twice is harmless.
func Import(store Store, occurrences []model.Occurrence) (ImportResult, error) {
	var res ImportResult
	for _, occ := range occurrences {
		d, day, ok := draftOf(occ)
		if !ok {
			res.Skipped++
			continue
		}
		_, added, err := store.AddIfAbsent(day, d, sameSlot(d))
		switch {
		case errors.Is(err, schedule.ErrInvalidInterval):
			res.Skipped++
		case err != nil:
			return res, err
		case !added:
			res.Duplicates++
		default:
			res.Added++
		}
	}
	appLog.Info("ics import completed", "added", res.Added, "skipped", res.Skipped, "duplicates", res.Duplicates)
	return res, nil
}

// ImportCalendar parses body, expands it over cfg's window and imports
// the resulting occurrences.
func ImportCalendar(store Store, src Source, body []byte, cfg ExpandConfig) (ImportResult, error) {
	parsed, err := ParseICS(src, body)
	if err != nil {
		return ImportResult{}, err
	}
	expanded, err := ExpandOccurrences(parsed, cfg)
	if err != nil {
		return ImportResult{}, err
	}
	if len(expanded.TruncatedEvents) > 0 {
		appLog.Warn("ics import truncated recurring events", "source", src.ID, "uids", expanded.TruncatedEvents)
	}
	return Import(store, expanded.Occurrences)
}

func draftOf(occ model.Occurrence) (model.Draft, model.DayKey, bool) {
	if occ.AllDay {
		return model.Draft{}, "", false
	}
	day := model.DayKeyOf(occ.Start)
	if model.DayKeyOf(occ.End) != day {
		return model.Draft{}, "", false
	}
	d := model.Draft{
		Title:       occ.Summary,
		Description: occ.Description,
		Start:       model.ClockOf(occ.Start),
		End:         model.ClockOf(occ.End),
	}
	if !d.Valid() {
		return model.Draft{}, "", false
	}
	return d, day, true
}

// sameSlot matches an event with d's title, start and end.
func sameSlot(d model.Draft) func(model.Event) bool {
	return func(ev model.Event) bool {
		return ev.Title == d.Title && ev.Start == d.Start && ev.End == d.End
	}
}
