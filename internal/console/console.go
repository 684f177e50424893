// Package console is a line-oriented front-end for the planner. It reads
// one command per line and prints the resulting view.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"itinerary/internal/agenda"
	appLog "itinerary/internal/log"
	"itinerary/internal/model"
	"itinerary/internal/planner"
	"itinerary/internal/schedule"
)

const (
	EmptyDayText     = agenda.EmptyDayText + " Use add to create one."
	InvalidRangeText = "Ensure start time is before end time and both are within the same day."
)

const helpText = `Commands:
  day <YYYY-MM-DD|today|tomorrow>   open a day
  back                              return to day selection
  list                              show the open day
  add                               start a new event
  edit <n|id>                       edit an event
  title <text>                      set the title
  desc <text>                       set the description
  start <time>                      set the start time (e.g. 09:30, 2pm)
  end <time>                        set the end time
  save | cancel                     close the form
  delete <n|id>                     delete an event (asks first)
  yes | no                          answer a delete confirmation
  help | quit
`

// Console owns one planner session.
type Console struct {
	p      *planner.Planner
	out    io.Writer
	clocks *model.ClockParser
	layout string
	loc    *time.Location

	// now is replaceable for tests.
	now func() time.Time
}

// New returns a console writing to out. layout is a time layout for rows
// (agenda.DefaultTimeLayout when empty); loc resolves "today".
func New(store planner.Store, out io.Writer, layout string, loc *time.Location) *Console {
	if loc == nil {
		loc = time.Local
	}
	return &Console{
		p:      planner.New(store),
		out:    out,
		clocks: model.NewClockParser(),
		layout: layout,
		loc:    loc,
		now:    time.Now,
	}
}

// Run executes commands from in until quit, EOF or ctx is done. Lines are
// read on a separate goroutine so cancellation does not wait for input;
// that goroutine exits once in yields its next line or fails.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if quit := c.Exec(line); quit {
				return nil
			}
			c.prompt()
		}
	}
}

func (c *Console) prompt() {
	switch c.p.State() {
	case planner.Browsing:
		fmt.Fprint(c.out, "itinerary> ")
	case planner.DaySelected:
		fmt.Fprintf(c.out, "itinerary %s> ", c.p.Day())
	case planner.Editing:
		mode := "new"
		if _, ok := c.p.Target(); ok {
			mode = "edit"
		}
		fmt.Fprintf(c.out, "itinerary %s (%s)> ", c.p.Day(), mode)
	}
}

// Exec runs a single command line and reports whether the session ended.
func (c *Console) Exec(line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	cmd = strings.ToLower(cmd)

	var err error
	switch cmd {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprint(c.out, helpText)
	case "day":
		err = c.selectDay(arg)
	case "back":
		err = c.p.Back()
	case "list", "ls":
		err = c.printDay()
	case "add":
		err = c.p.BeginAdd()
		if err == nil {
			fmt.Fprintln(c.out, "New event. Set title, desc, start and end, then save.")
		}
	case "edit":
		err = c.edit(arg)
	case "title":
		err = c.p.EditDraft(func(d *model.Draft) { d.Title = arg })
	case "desc":
		err = c.p.EditDraft(func(d *model.Draft) { d.Description = arg })
	case "start", "end":
		err = c.setTime(cmd, arg)
	case "save":
		err = c.save()
	case "cancel":
		err = c.p.Cancel()
		if err == nil {
			err = c.printDay()
		}
	case "delete", "rm":
		err = c.requestDelete(arg)
	case "yes", "y":
		err = c.p.ConfirmDelete()
		if err == nil {
			fmt.Fprintln(c.out, "Deleted.")
			err = c.printDay()
		}
	case "no", "n":
		c.p.DismissDelete()
	default:
		err = fmt.Errorf("unknown command %q (try help)", cmd)
	}
	if err != nil {
		c.report(err)
	}
	return false
}

func (c *Console) report(err error) {
	var te *planner.TransitionError
	switch {
	case errors.Is(err, schedule.ErrInvalidInterval):
		fmt.Fprintln(c.out, "Invalid Time Range: "+InvalidRangeText)
	case errors.Is(err, schedule.ErrNotFound):
		fmt.Fprintln(c.out, "That event no longer exists.")
	case errors.As(err, &te):
		fmt.Fprintf(c.out, "Not available while %s.\n", te.From)
	default:
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
	appLog.Debug("console command failed", "err", err.Error(), "state", c.p.State().String())
}

func (c *Console) selectDay(arg string) error {
	day, err := c.clocks.ParseDay(arg, c.now().In(c.loc))
	if err != nil {
		return err
	}
	if c.p.State() == planner.DaySelected {
		if err := c.p.Back(); err != nil {
			return err
		}
	}
	if err := c.p.SelectDay(day); err != nil {
		return err
	}
	return c.printDay()
}

func (c *Console) printDay() error {
	events, err := c.p.Events()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.p.Day())
	if len(events) == 0 {
		fmt.Fprintln(c.out, "  "+EmptyDayText)
		return nil
	}
	for i, ev := range events {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, agenda.FormatRow(ev, c.layout))
		if desc := strings.TrimSpace(ev.Description); desc != "" {
			fmt.Fprintf(c.out, "       %s\n", desc)
		}
	}
	return nil
}

// resolve maps a 1-based row number or an event id on the open day to an id.
func (c *Console) resolve(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("missing event number")
	}
	events, err := c.p.Events()
	if err != nil {
		return "", err
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(events) {
			return "", fmt.Errorf("no event #%d", n)
		}
		return events[n-1].ID, nil
	}
	return arg, nil
}

func (c *Console) edit(arg string) error {
	if err := c.requireDay("edit"); err != nil {
		return err
	}
	id, err := c.resolve(arg)
	if err != nil {
		return err
	}
	if err := c.p.BeginEdit(id); err != nil {
		return err
	}
	d := c.p.Draft()
	fmt.Fprintf(c.out, "Editing %q %s - %s\n", d.Title, d.Start.Format(c.rowLayout()), d.End.Format(c.rowLayout()))
	return nil
}

func (c *Console) requestDelete(arg string) error {
	if err := c.requireDay("delete"); err != nil {
		return err
	}
	id, err := c.resolve(arg)
	if err != nil {
		return err
	}
	if err := c.p.RequestDelete(id); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Delete this event? (yes/no)")
	return nil
}

func (c *Console) requireDay(action string) error {
	if c.p.State() != planner.DaySelected {
		return &planner.TransitionError{From: c.p.State(), Action: action}
	}
	return nil
}

func (c *Console) setTime(which, arg string) error {
	if c.p.State() != planner.Editing {
		return &planner.TransitionError{From: c.p.State(), Action: which}
	}
	t, err := c.clocks.Parse(arg)
	if err != nil {
		return err
	}
	return c.p.EditDraft(func(d *model.Draft) {
		if which == "start" {
			d.Start = t
		} else {
			d.End = t
		}
	})
}

func (c *Console) save() error {
	ev, err := c.p.Save()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved %s.\n", agenda.FormatRow(ev, c.layout))
	return c.printDay()
}

func (c *Console) rowLayout() string {
	if c.layout == "" {
		return agenda.DefaultTimeLayout
	}
	return c.layout
}
