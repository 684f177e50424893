package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayKeyLayout is the canonical YYYY-MM-DD layout of a DayKey.
const DayKeyLayout = "2006-01-02"

var (
	ErrInvalidDayKey = errors.New("invalid day key")
	ErrInvalidClock  = errors.New("invalid time of day")
)

// DayKey identifies one calendar day bucket of the schedule.
type DayKey string

// ParseDayKey validates s as a real YYYY-MM-DD calendar date.
func ParseDayKey(s string) (DayKey, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DayKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDayKey, s)
	}
	return DayKey(t.Format(DayKeyLayout)), nil
}

// DayKeyOf returns the key of the day t falls on, in t's own location.
func DayKeyOf(t time.Time) DayKey {
	return DayKey(t.Format(DayKeyLayout))
}

// Time returns midnight of the day in loc. A nil loc means time.Local.
func (k DayKey) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayKeyLayout, string(k), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDayKey, string(k))
	}
	return t, nil
}

// AddDays returns the key n days after k (n may be negative).
func (k DayKey) AddDays(n int) (DayKey, error) {
	t, err := k.Time(time.UTC)
	if err != nil {
		return "", err
	}
	return DayKeyOf(t.AddDate(0, 0, n)), nil
}

func (k DayKey) String() string { return string(k) }

// Event is a titled, described time interval within a single day.
// The owning day is the schedule bucket it lives in.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       Clock  `json:"start"`
	End         Clock  `json:"end"`
}

// Draft holds the editable fields of an Event.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       Clock  `json:"start"`
	End         Clock  `json:"end"`
}

// Draft returns the editable fields of e.
func (e Event) Draft() Draft {
	return Draft{
		Title:       e.Title,
		Description: e.Description,
		Start:       e.Start,
		End:         e.End,
	}
}

// Valid reports whether the draft describes a non-empty interval.
func (d Draft) Valid() bool {
	return d.Start < d.End
}

// Occurrence is a single concrete instance of an imported calendar event,
// after recurrence expansion and timezone normalization.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	AllDay      bool

	// Start / End are in the display timezone.
	Start time.Time
	End   time.Time
}
