package planner

import (
	"errors"
	"testing"

	"itinerary/internal/model"
	"itinerary/internal/schedule"
)

const day = model.DayKey("2025-06-01")

func newPlanner(t *testing.T) (*Planner, *schedule.Schedule) {
	t.Helper()
	s := schedule.New()
	return New(s), s
}

func TestInitialStateAndIllegalTransitions(t *testing.T) {
	t.Parallel()
	p, _ := newPlanner(t)
	if p.State() != Browsing {
		t.Fatalf("State = %s, want browsing", p.State())
	}

	var te *TransitionError
	if err := p.Back(); !errors.As(err, &te) || te.From != Browsing {
		t.Fatalf("Back from browsing err = %v", err)
	}
	if err := p.BeginAdd(); !errors.As(err, &te) {
		t.Fatalf("BeginAdd from browsing err = %v", err)
	}
	if _, err := p.Save(); !errors.As(err, &te) {
		t.Fatalf("Save from browsing err = %v", err)
	}
	if _, err := p.Events(); !errors.As(err, &te) {
		t.Fatalf("Events from browsing err = %v", err)
	}
	if p.State() != Browsing {
		t.Fatalf("failed transitions changed state to %s", p.State())
	}
}

func TestAddFlow(t *testing.T) {
	t.Parallel()
	p, s := newPlanner(t)

	if err := p.SelectDay(day); err != nil {
		t.Fatalf("SelectDay error: %v", err)
	}
	if err := p.SelectDay("2025-06-02"); err == nil {
		t.Fatal("SelectDay while a day is selected should fail")
	}
	if err := p.BeginAdd(); err != nil {
		t.Fatalf("BeginAdd error: %v", err)
	}
	if _, ok := p.Target(); ok {
		t.Fatal("create form should have no target")
	}

	_ = p.SetDraft(model.Draft{Title: "Check-in", Start: model.MustClock(15, 0), End: model.MustClock(14, 0)})
	if _, err := p.Save(); !errors.Is(err, schedule.ErrInvalidInterval) {
		t.Fatalf("Save invalid err = %v, want ErrInvalidInterval", err)
	}
	if p.State() != Editing {
		t.Fatalf("State after invalid save = %s, want editing", p.State())
	}
	if p.Draft().Title != "Check-in" {
		t.Fatal("invalid save discarded the draft")
	}
	if len(s.List(day)) != 0 {
		t.Fatal("invalid save wrote to the schedule")
	}

	_ = p.EditDraft(func(d *model.Draft) { d.End = model.MustClock(16, 0) })
	ev, err := p.Save()
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if p.State() != DaySelected {
		t.Fatalf("State after save = %s, want day-selected", p.State())
	}
	events, _ := p.Events()
	if len(events) != 1 || events[0] != ev {
		t.Fatalf("Events = %+v, want [%+v]", events, ev)
	}

	if err := p.Back(); err != nil || p.State() != Browsing || p.Day() != "" {
		t.Fatalf("Back = %v, state %s, day %q", err, p.State(), p.Day())
	}
}

func TestEditAndCancel(t *testing.T) {
	t.Parallel()
	p, s := newPlanner(t)
	orig, _ := s.Add(day, model.Draft{Title: "Museum", Start: model.MustClock(10, 0), End: model.MustClock(12, 0)})

	_ = p.SelectDay(day)
	if err := p.BeginEdit(orig.ID); err != nil {
		t.Fatalf("BeginEdit error: %v", err)
	}
	if got, ok := p.Target(); !ok || got.ID != orig.ID {
		t.Fatalf("Target = %+v, %v", got, ok)
	}
	if p.Draft() != orig.Draft() {
		t.Fatalf("draft not preloaded: %+v", p.Draft())
	}

	_ = p.EditDraft(func(d *model.Draft) { d.Title = "Changed" })
	if err := p.Cancel(); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if p.State() != DaySelected {
		t.Fatalf("State after cancel = %s", p.State())
	}
	if got, _ := s.Get(day, orig.ID); got.Title != "Museum" {
		t.Fatal("cancel committed the draft")
	}

	_ = p.BeginEdit(orig.ID)
	_ = p.EditDraft(func(d *model.Draft) { d.Title = "Museum tour" })
	ev, err := p.Save()
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if ev.ID != orig.ID || ev.Title != "Museum tour" {
		t.Fatalf("Save returned %+v", ev)
	}
}

func TestEditUnknownAndVanishedTarget(t *testing.T) {
	t.Parallel()
	p, s := newPlanner(t)
	ev, _ := s.Add(day, model.Draft{Title: "Dinner", Start: model.MustClock(19, 0), End: model.MustClock(21, 0)})

	_ = p.SelectDay(day)
	if err := p.BeginEdit("missing"); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("BeginEdit(missing) err = %v", err)
	}
	if p.State() != DaySelected {
		t.Fatalf("State = %s, want day-selected", p.State())
	}

	_ = p.BeginEdit(ev.ID)
	// Deleted from another view of the same schedule.
	_ = s.Delete(day, ev.ID)
	if _, err := p.Save(); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("Save err = %v, want ErrNotFound", err)
	}
	if p.State() != DaySelected {
		t.Fatalf("State after stale save = %s, want day-selected", p.State())
	}
}

func TestDeleteConfirmation(t *testing.T) {
	t.Parallel()
	p, s := newPlanner(t)
	ev, _ := s.Add(day, model.Draft{Title: "Tour", Start: model.MustClock(9, 0), End: model.MustClock(10, 0)})
	_ = p.SelectDay(day)

	if err := p.RequestDelete(ev.ID); err != nil {
		t.Fatalf("RequestDelete error: %v", err)
	}
	p.DismissDelete()
	if _, ok := p.PendingDelete(); ok {
		t.Fatal("dismiss kept the pending delete")
	}
	if len(s.List(day)) != 1 {
		t.Fatal("dismissed delete removed the event")
	}

	_ = p.RequestDelete(ev.ID)
	if err := p.ConfirmDelete(); err != nil {
		t.Fatalf("ConfirmDelete error: %v", err)
	}
	if len(s.List(day)) != 0 {
		t.Fatal("confirmed delete kept the event")
	}

	var te *TransitionError
	if err := p.ConfirmDelete(); !errors.As(err, &te) {
		t.Fatalf("ConfirmDelete without pending err = %v", err)
	}
	if err := p.RequestDelete(ev.ID); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("RequestDelete(deleted) err = %v", err)
	}
}
