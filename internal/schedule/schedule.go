// Package schedule is the in-memory trip event scheduler: a store of timed
// events bucketed by calendar day.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"itinerary/internal/model"
)

var (
	// ErrInvalidInterval is returned when an event would not start strictly
	// before it ends.
	ErrInvalidInterval = errors.New("start time must be before end time")
	// ErrNotFound is returned when an event id does not exist under a day.
	ErrNotFound = errors.New("event not found")
)

// Op names a scheduler mutation reported to hooks.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Hook observes every mutation after it completed or failed. Hooks run
// outside the schedule lock.
type Hook func(op Op, day model.DayKey, err error)

type Option func(*Schedule)

// WithHook registers h. Multiple hooks run in registration order.
func WithHook(h Hook) Option {
	return func(s *Schedule) {
		if h != nil {
			s.hooks = append(s.hooks, h)
		}
	}
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Schedule) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Schedule owns every event. Callers only ever see copies.
type Schedule struct {
	mu    sync.RWMutex
	days  map[model.DayKey][]model.Event
	total int

	newID func() string
	hooks []Hook
}

// DaySummary is one non-empty day bucket.
type DaySummary struct {
	Day   model.DayKey `json:"day"`
	Count int          `json:"count"`
}

func New(opts ...Option) *Schedule {
	s := &Schedule{
		days:  make(map[model.DayKey][]model.Event),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func checkInterval(d model.Draft) error {
	if !d.Start.Valid() || !d.End.Valid() {
		return fmt.Errorf("%w: %d..%d is outside the day", ErrInvalidInterval, int(d.Start), int(d.End))
	}
	if !d.Valid() {
		return fmt.Errorf("%w: %s >= %s", ErrInvalidInterval, d.Start, d.End)
	}
	return nil
}

// Add stores a new event with a fresh id under day.
// Overlapping events on the same day are allowed.
func (s *Schedule) Add(day model.DayKey, d model.Draft) (model.Event, error) {
	ev, _, err := s.AddIfAbsent(day, d, nil)
	return ev, err
}

// AddIfAbsent is Add unless dup reports an existing event of day as a
// duplicate of d. The check and the insert happen under one lock. added
// is false and the duplicate is returned when one was found. A nil dup
// never matches.
func (s *Schedule) AddIfAbsent(day model.DayKey, d model.Draft, dup func(model.Event) bool) (ev model.Event, added bool, err error) {
	if err := checkInterval(d); err != nil {
		s.notify(OpAdd, day, err)
		return model.Event{}, false, err
	}

	s.mu.Lock()
	if dup != nil {
		for _, existing := range s.days[day] {
			if dup(existing) {
				s.mu.Unlock()
				return existing, false, nil
			}
		}
	}
	ev = model.Event{
		ID:          s.newID(),
		Title:       d.Title,
		Description: d.Description,
		Start:       d.Start,
		End:         d.End,
	}
	s.days[day] = append(s.days[day], ev)
	s.total++
	s.mu.Unlock()

	s.notify(OpAdd, day, nil)
	return ev, true, nil
}

// Update replaces the fields of event id under day. The id and the day
// never change.
func (s *Schedule) Update(day model.DayKey, id string, d model.Draft) (model.Event, error) {
	if err := checkInterval(d); err != nil {
		s.notify(OpUpdate, day, err)
		return model.Event{}, err
	}

	s.mu.Lock()
	i := s.indexLocked(day, id)
	if i < 0 {
		s.mu.Unlock()
		err := fmt.Errorf("%w: %s on %s", ErrNotFound, id, day)
		s.notify(OpUpdate, day, err)
		return model.Event{}, err
	}
	ev := model.Event{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Start:       d.Start,
		End:         d.End,
	}
	s.days[day][i] = ev
	s.mu.Unlock()

	s.notify(OpUpdate, day, nil)
	return ev, nil
}

// Delete removes event id from day. Deleting an absent event reports
// ErrNotFound; callers may treat that as success.
func (s *Schedule) Delete(day model.DayKey, id string) error {
	s.mu.Lock()
	i := s.indexLocked(day, id)
	if i < 0 {
		s.mu.Unlock()
		err := fmt.Errorf("%w: %s on %s", ErrNotFound, id, day)
		s.notify(OpDelete, day, err)
		return err
	}
	events := s.days[day]
	events = append(events[:i], events[i+1:]...)
	if len(events) == 0 {
		delete(s.days, day)
	} else {
		s.days[day] = events
	}
	s.total--
	s.mu.Unlock()

	s.notify(OpDelete, day, nil)
	return nil
}

// List returns the events of day ordered by start time. Events starting
// at the same time keep insertion order. The slice is never nil.
func (s *Schedule) List(day model.DayKey) []model.Event {
	s.mu.RLock()
	out := make([]model.Event, len(s.days[day]))
	copy(out, s.days[day])
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

// Get returns a copy of event id under day.
func (s *Schedule) Get(day model.DayKey, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(day, id)
	if i < 0 {
		return model.Event{}, fmt.Errorf("%w: %s on %s", ErrNotFound, id, day)
	}
	return s.days[day][i], nil
}

// Days lists every day that holds at least one event, in calendar order.
func (s *Schedule) Days() []DaySummary {
	s.mu.RLock()
	out := make([]DaySummary, 0, len(s.days))
	for day, events := range s.days {
		out = append(out, DaySummary{Day: day, Count: len(events)})
	}
	s.mu.RUnlock()

	// YYYY-MM-DD sorts lexically in calendar order.
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// Len is the total number of stored events across all days.
func (s *Schedule) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *Schedule) indexLocked(day model.DayKey, id string) int {
	for i, ev := range s.days[day] {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

func (s *Schedule) notify(op Op, day model.DayKey, err error) {
	for _, h := range s.hooks {
		h(op, day, err)
	}
}
