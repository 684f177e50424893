package agenda

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	appLog "itinerary/internal/log"
	"itinerary/internal/model"
)

// Lister is what the digest job reads from.
type Lister interface {
	List(day model.DayKey) []model.Event
}

// Job logs today's agenda on a cron schedule.
type Job struct {
	cron   *cron.Cron
	src    Lister
	loc    *time.Location
	layout string
	now    func() time.Time

	// Sink receives each digest. Defaults to the application log.
	Sink func(day model.DayKey, text string, count int)
}

// NewJob validates spec (standard 5-field cron syntax, evaluated in loc)
// and registers the digest. The job does not run until Start.
func NewJob(src Lister, spec string, loc *time.Location, layout string) (*Job, error) {
	if src == nil {
		return nil, errors.New("agenda: nil source")
	}
	if loc == nil {
		loc = time.Local
	}
	j := &Job{
		cron:   cron.New(cron.WithLocation(loc)),
		src:    src,
		loc:    loc,
		layout: layout,
		now:    time.Now,
		Sink: func(day model.DayKey, text string, count int) {
			appLog.Info("agenda digest", "day", day, "events", count, "agenda", text)
		},
	}
	if _, err := j.cron.AddFunc(spec, j.RunOnce); err != nil {
		return nil, err
	}
	return j, nil
}

// RunOnce emits the digest for the current day.
func (j *Job) RunOnce() {
	day := model.DayKeyOf(j.now().In(j.loc))
	events := j.src.List(day)
	j.Sink(day, Digest(day, events, j.layout), len(events))
}

func (j *Job) Start() {
	j.cron.Start()
	appLog.Debug("agenda job started", "entries", len(j.cron.Entries()))
}

// Stop stops the scheduler and waits for a running digest, bounded by ctx.
func (j *Job) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
