package console

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"itinerary/internal/agenda"
	"itinerary/internal/model"
	"itinerary/internal/schedule"
)

func newConsole(t *testing.T) (*Console, *schedule.Schedule, *bytes.Buffer) {
	t.Helper()
	n := 0
	sched := schedule.New(schedule.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("ev-%d", n)
	}))
	var out bytes.Buffer
	c := New(sched, &out, "", time.UTC)
	c.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return c, sched, &out
}

func run(t *testing.T, c *Console, script ...string) {
	t.Helper()
	in := strings.NewReader(strings.Join(script, "\n") + "\n")
	if err := c.Run(context.Background(), in); err != nil {
		t.Fatalf("Run error: %v", err)
	}
}

func TestAddEventFlow(t *testing.T) {
	t.Parallel()
	c, sched, out := newConsole(t)

	run(t, c,
		"day 2025-06-01",
		"add",
		"title Flight to Lisbon",
		"desc TP 1234",
		"start 9am",
		"end 11:30",
		"save",
	)

	evs := sched.List("2025-06-01")
	if len(evs) != 1 {
		t.Fatalf("events = %+v", evs)
	}
	ev := evs[0]
	if ev.Title != "Flight to Lisbon" || ev.Description != "TP 1234" ||
		ev.Start != model.MustClock(9, 0) || ev.End != model.MustClock(11, 30) {
		t.Fatalf("event = %+v", ev)
	}
	got := out.String()
	for _, want := range []string{
		EmptyDayText,
		"1. 9:00 AM - 11:30 AM  Flight to Lisbon",
		"       TP 1234",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestInvalidRangeKeepsForm(t *testing.T) {
	t.Parallel()
	c, sched, out := newConsole(t)

	run(t, c,
		"day today",
		"add",
		"title Dinner",
		"start 20:00",
		"end 19:00",
		"save",
	)
	if !strings.Contains(out.String(), InvalidRangeText) {
		t.Fatalf("missing alert:\n%s", out)
	}
	if sched.Len() != 0 {
		t.Fatalf("invalid event stored")
	}

	// The draft survives the alert.
	run(t, c, "end 21:00", "save")
	evs := sched.List("2025-06-01")
	if len(evs) != 1 || evs[0].Title != "Dinner" || evs[0].End != model.MustClock(21, 0) {
		t.Fatalf("events = %+v", evs)
	}
}

func TestEditAndDeleteByRow(t *testing.T) {
	t.Parallel()
	c, sched, out := newConsole(t)
	day := model.DayKey("2025-06-02")
	mustAdd := func(title string, h int) {
		t.Helper()
		if _, err := sched.Add(day, model.Draft{Title: title, Start: model.MustClock(h, 0), End: model.MustClock(h+1, 0)}); err != nil {
			t.Fatal(err)
		}
	}
	mustAdd("Museum", 14)
	mustAdd("Breakfast", 8)

	run(t, c,
		"day tomorrow",
		"edit 2",
		"title Museum of Art",
		"save",
	)
	if ev, _ := sched.Get(day, "ev-1"); ev.Title != "Museum of Art" {
		t.Fatalf("edit by row = %+v", ev)
	}

	run(t, c, "delete 1", "no")
	if n := len(sched.List(day)); n != 2 {
		t.Fatalf("dismissed delete removed an event, %d left", n)
	}

	run(t, c, "delete 1", "yes")
	evs := sched.List(day)
	if len(evs) != 1 || evs[0].ID != "ev-1" {
		t.Fatalf("after delete = %+v", evs)
	}
	if !strings.Contains(out.String(), "Delete this event? (yes/no)") {
		t.Fatalf("no confirmation prompt:\n%s", out)
	}
}

func TestCommandsOutsideTheirState(t *testing.T) {
	t.Parallel()
	c, _, out := newConsole(t)

	cases := []struct {
		line string
		want string
	}{
		{"add", "Not available while browsing."},
		{"save", "Not available while browsing."},
		{"start 9am", "Not available while browsing."},
		{"day 2025-02-30", "error: invalid day key"},
		{"frobnicate", `unknown command "frobnicate"`},
	}
	for _, tc := range cases {
		out.Reset()
		c.Exec(tc.line)
		if !strings.Contains(out.String(), tc.want) {
			t.Fatalf("Exec(%q) = %q, want %q", tc.line, out.String(), tc.want)
		}
	}

	out.Reset()
	c.Exec("day 2025-06-01")
	c.Exec("edit 3")
	if !strings.Contains(out.String(), "no event #3") {
		t.Fatalf("edit missing row = %q", out.String())
	}
}

func TestQuitStopsRun(t *testing.T) {
	t.Parallel()
	c, sched, _ := newConsole(t)
	run(t, c, "day 2025-06-01", "quit", "add", "title x", "start 9", "end 10", "save")
	if sched.Len() != 0 {
		t.Fatal("commands after quit were executed")
	}
	if !c.Exec("exit") {
		t.Fatal("exit should end the session")
	}
}

func TestRunReturnsOnCancelWithoutInput(t *testing.T) {
	t.Parallel()
	c, _, _ := newConsole(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, pr) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEmptyDayTextSharesAgendaWording(t *testing.T) {
	t.Parallel()
	if !strings.HasPrefix(EmptyDayText, agenda.EmptyDayText) {
		t.Fatalf("EmptyDayText = %q, want prefix %q", EmptyDayText, agenda.EmptyDayText)
	}
}
