package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ClockParser understands both fixed layouts ("09:30", "9:30 PM") and
// free text such as "at 5pm" or "half past 9 in the evening". It also
// resolves relative days ("tomorrow", "next friday").
type ClockParser struct {
	w *when.Parser
}

func NewClockParser() *ClockParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &ClockParser{w: w}
}

// Parse tries ParseClock first and falls back to natural language.
func (p *ClockParser) Parse(s string) (Clock, error) {
	if c, err := ParseClock(s); err == nil {
		return c, nil
	}
	text := strings.TrimSpace(s)
	if text == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidClock)
	}

	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	r, err := p.w.Parse(text, base)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidClock, s, err)
	}
	if r == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	// A match that moves the date or leaves base untouched named a day,
	// not a time.
	if r.Time.Year() != base.Year() || r.Time.YearDay() != base.YearDay() || r.Time.Equal(base) {
		return 0, fmt.Errorf("%w: %q has no time of day", ErrInvalidClock, s)
	}
	return ClockOf(r.Time), nil
}

// ParseDay accepts a YYYY-MM-DD key or a relative day resolved against
// now, in now's location.
func (p *ClockParser) ParseDay(s string, now time.Time) (DayKey, error) {
	if k, err := ParseDayKey(s); err == nil {
		return k, nil
	}
	text := strings.ToLower(strings.TrimSpace(s))
	switch text {
	case "":
		return "", fmt.Errorf("%w: empty", ErrInvalidDayKey)
	case "today":
		return DayKeyOf(now), nil
	}
	r, err := p.w.Parse(text, now)
	if err != nil || r == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDayKey, s)
	}
	return DayKeyOf(r.Time.In(now.Location())), nil
}
