// Package planner drives the day-picking and event-editing flow on top of
// a schedule as an explicit state machine:
//
//	Browsing --SelectDay--> DaySelected --BeginAdd/BeginEdit--> Editing
//	Browsing <----Back----- DaySelected <-----Save/Cancel------ Editing
//
// A failed Save with an invalid interval keeps the planner in Editing.
// Deleting goes through a confirmation step while a day is selected.
package planner

import (
	"errors"
	"fmt"

	"itinerary/internal/model"
	"itinerary/internal/schedule"
)

type State int

const (
	Browsing State = iota
	DaySelected
	Editing
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case DaySelected:
		return "day-selected"
	case Editing:
		return "editing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Store is the subset of the schedule the planner needs.
type Store interface {
	Add(day model.DayKey, d model.Draft) (model.Event, error)
	Update(day model.DayKey, id string, d model.Draft) (model.Event, error)
	Delete(day model.DayKey, id string) error
	List(day model.DayKey) []model.Event
	Get(day model.DayKey, id string) (model.Event, error)
}

// TransitionError reports an action that is not allowed in the current state.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("planner: %s is not allowed while %s", e.Action, e.From)
}

// Planner is owned by a single UI session and is not safe for concurrent use.
type Planner struct {
	store Store
	state State
	day   model.DayKey

	target *model.Event // nil while creating
	draft  model.Draft

	pendingDelete string
}

func New(store Store) *Planner {
	return &Planner{store: store, state: Browsing}
}

func (p *Planner) State() State       { return p.state }
func (p *Planner) Day() model.DayKey  { return p.day }
func (p *Planner) Draft() model.Draft { return p.draft }

// Target returns the event being edited; ok is false while creating or
// when no form is open.
func (p *Planner) Target() (model.Event, bool) {
	if p.target == nil {
		return model.Event{}, false
	}
	return *p.target, true
}

// PendingDelete returns the id awaiting confirmation, if any.
func (p *Planner) PendingDelete() (string, bool) {
	return p.pendingDelete, p.pendingDelete != ""
}

func (p *Planner) require(s State, action string) error {
	if p.state != s {
		return &TransitionError{From: p.state, Action: action}
	}
	return nil
}

func (p *Planner) SelectDay(day model.DayKey) error {
	if err := p.require(Browsing, "select day"); err != nil {
		return err
	}
	p.day = day
	p.state = DaySelected
	return nil
}

func (p *Planner) Back() error {
	if err := p.require(DaySelected, "back"); err != nil {
		return err
	}
	p.day = ""
	p.pendingDelete = ""
	p.state = Browsing
	return nil
}

// Events lists the selected day.
func (p *Planner) Events() ([]model.Event, error) {
	if p.state == Browsing {
		return nil, &TransitionError{From: p.state, Action: "list"}
	}
	return p.store.List(p.day), nil
}

func (p *Planner) BeginAdd() error {
	if err := p.require(DaySelected, "add"); err != nil {
		return err
	}
	p.target = nil
	p.draft = model.Draft{}
	p.pendingDelete = ""
	p.state = Editing
	return nil
}

// BeginEdit opens the form preloaded with event id. A missing event keeps
// the planner on the day view.
func (p *Planner) BeginEdit(id string) error {
	if err := p.require(DaySelected, "edit"); err != nil {
		return err
	}
	ev, err := p.store.Get(p.day, id)
	if err != nil {
		return err
	}
	p.target = &ev
	p.draft = ev.Draft()
	p.pendingDelete = ""
	p.state = Editing
	return nil
}

func (p *Planner) SetDraft(d model.Draft) error {
	if err := p.require(Editing, "edit draft"); err != nil {
		return err
	}
	p.draft = d
	return nil
}

// EditDraft applies fn to the open draft.
func (p *Planner) EditDraft(fn func(*model.Draft)) error {
	if err := p.require(Editing, "edit draft"); err != nil {
		return err
	}
	fn(&p.draft)
	return nil
}

// Save commits the draft. On schedule.ErrInvalidInterval the form stays
// open so the user can correct it. On schedule.ErrNotFound the edited
// event is gone and the form closes.
func (p *Planner) Save() (model.Event, error) {
	if err := p.require(Editing, "save"); err != nil {
		return model.Event{}, err
	}

	var (
		ev  model.Event
		err error
	)
	if p.target == nil {
		ev, err = p.store.Add(p.day, p.draft)
	} else {
		ev, err = p.store.Update(p.day, p.target.ID, p.draft)
	}
	switch {
	case err == nil:
		p.closeForm()
		return ev, nil
	case errors.Is(err, schedule.ErrNotFound):
		p.closeForm()
		return model.Event{}, err
	default:
		return model.Event{}, err
	}
}

// Cancel discards the draft.
func (p *Planner) Cancel() error {
	if err := p.require(Editing, "cancel"); err != nil {
		return err
	}
	p.closeForm()
	return nil
}

func (p *Planner) closeForm() {
	p.target = nil
	p.draft = model.Draft{}
	p.state = DaySelected
}

// RequestDelete asks for confirmation before deleting id.
func (p *Planner) RequestDelete(id string) error {
	if err := p.require(DaySelected, "delete"); err != nil {
		return err
	}
	if _, err := p.store.Get(p.day, id); err != nil {
		return err
	}
	p.pendingDelete = id
	return nil
}

// ConfirmDelete deletes the pending event. schedule.ErrNotFound is
// returned when it vanished in the meantime.
func (p *Planner) ConfirmDelete() error {
	if err := p.require(DaySelected, "confirm delete"); err != nil {
		return err
	}
	if p.pendingDelete == "" {
		return &TransitionError{From: p.state, Action: "confirm delete without a pending delete"}
	}
	id := p.pendingDelete
	p.pendingDelete = ""
	return p.store.Delete(p.day, id)
}

func (p *Planner) DismissDelete() {
	p.pendingDelete = ""
}
