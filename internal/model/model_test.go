package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDayKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    DayKey
		wantErr bool
	}{
		{in: "2025-06-01", want: "2025-06-01"},
		{in: " 2025-12-31 ", want: "2025-12-31"},
		{in: "2025-6-1", wantErr: true},
		{in: "2025-02-30", wantErr: true},
		{in: "06/01/2025", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDayKey(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDayKey) {
				t.Fatalf("ParseDayKey(%q) err = %v, want ErrInvalidDayKey", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDayKey(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDayKey(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDayKeyTimeAndAddDays(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+9", 9*3600)
	day := DayKey("2025-06-30")

	mid, err := day.Time(loc)
	if err != nil {
		t.Fatalf("Time error: %v", err)
	}
	if mid.Hour() != 0 || mid.Location() != loc || DayKeyOf(mid) != day {
		t.Fatalf("Time = %v, want midnight of %s in %s", mid, day, loc)
	}

	next, err := day.AddDays(1)
	if err != nil {
		t.Fatalf("AddDays error: %v", err)
	}
	if next != "2025-07-01" {
		t.Fatalf("AddDays(1) = %s, want 2025-07-01", next)
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Clock
	}{
		{"09:00", MustClock(9, 0)},
		{"9:30", MustClock(9, 30)},
		{"23:59", MustClock(23, 59)},
		{"14:05:59", MustClock(14, 5)},
		{"3:04 pm", MustClock(15, 4)},
		{"12:00AM", MustClock(0, 0)},
		{"7 p.m.", MustClock(19, 0)},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if err != nil {
			t.Fatalf("ParseClock(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseClock(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"24:00", "9:60", "noonish", ""} {
		if _, err := ParseClock(bad); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("ParseClock(%q) err = %v, want ErrInvalidClock", bad, err)
		}
	}
}

func TestClockFormatting(t *testing.T) {
	t.Parallel()
	c := MustClock(13, 5)
	if c.String() != "13:05" {
		t.Fatalf("String = %s, want 13:05", c.String())
	}
	if c.Kitchen() != "1:05 PM" {
		t.Fatalf("Kitchen = %s, want 1:05 PM", c.Kitchen())
	}
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := c.On(day); !got.Equal(time.Date(2025, 6, 1, 13, 5, 0, 0, time.UTC)) {
		t.Fatalf("On = %v", got)
	}
	if _, err := NewClock(24, 0); err == nil {
		t.Fatal("expected error for hour 24")
	}
}

func TestEventJSON(t *testing.T) {
	t.Parallel()
	ev := Event{ID: "a", Title: "Flight", Start: MustClock(8, 0), End: MustClock(9, 30)}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	want := `{"id":"a","title":"Flight","description":"","start":"08:00","end":"09:30"}`
	if string(b) != want {
		t.Fatalf("json = %s, want %s", b, want)
	}

	var d Draft
	if err := json.Unmarshal([]byte(`{"title":"x","start":"7:15 PM","end":"20:00"}`), &d); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if d.Start != MustClock(19, 15) || d.End != MustClock(20, 0) || !d.Valid() {
		t.Fatalf("draft = %+v", d)
	}
}

func TestClockParserNatural(t *testing.T) {
	t.Parallel()
	p := NewClockParser()

	got, err := p.Parse("10:45")
	if err != nil || got != MustClock(10, 45) {
		t.Fatalf("Parse(10:45) = %s, %v", got, err)
	}

	got, err = p.Parse("at 5pm")
	if err != nil {
		t.Fatalf("Parse(at 5pm) error: %v", err)
	}
	if got != MustClock(17, 0) {
		t.Fatalf("Parse(at 5pm) = %s, want 17:00", got)
	}

	for _, in := range []string{"   ", "tomorrow", "next friday", "june 3", "today"} {
		if got, err := p.Parse(in); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("Parse(%q) = %s, %v; want ErrInvalidClock", in, got, err)
		}
	}

	// Midnight stays reachable through the fixed layouts.
	if got, err := p.Parse("12am"); err != nil || got != MustClock(0, 0) {
		t.Fatalf("Parse(12am) = %s, %v", got, err)
	}
}

func TestClockParserParseDay(t *testing.T) {
	t.Parallel()
	p := NewClockParser()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		in   string
		want DayKey
	}{
		{"2025-07-04", "2025-07-04"},
		{"today", "2025-06-01"},
		{"Today", "2025-06-01"},
		{"tomorrow", "2025-06-02"},
	}
	for _, tc := range cases {
		got, err := p.ParseDay(tc.in, now)
		if err != nil || got != tc.want {
			t.Fatalf("ParseDay(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
	if _, err := p.ParseDay("", now); !errors.Is(err, ErrInvalidDayKey) {
		t.Fatalf("ParseDay(empty) err = %v", err)
	}
}
