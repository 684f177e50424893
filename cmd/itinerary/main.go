package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"itinerary/internal/agenda"
	"itinerary/internal/capture"
	"itinerary/internal/config"
	"itinerary/internal/console"
	"itinerary/internal/ics"
	appLog "itinerary/internal/log"
	"itinerary/internal/metric"
	"itinerary/internal/model"
	"itinerary/internal/schedule"
	"itinerary/internal/web"
)

const version = "0.3.0"

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	icsPath    string
	console    bool
	capture    string
	out        string
}

func main() {
	flags := parseFlags()

	if err := godotenv.Load(flags.envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("failed to load env file", "path", flags.envPath, "err", err)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	applyOverrides(conf, flags)
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("itinerary starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"time_format", conf.TimeFormat,
		"agenda", conf.Agenda.Enabled,
		"basic_auth", conf.BasicAuth != nil,
		"console", flags.console,
		"capture", flags.capture,
	)

	loc, err := conf.Location()
	if err != nil {
		appLog.Warn("unknown timezone, using local", "timezone", conf.Timezone, "err", err)
	}

	metrics := metric.New()
	sched := schedule.New(
		schedule.WithHook(metrics.Hook()),
		schedule.WithHook(func(op schedule.Op, day model.DayKey, err error) {
			if err != nil {
				appLog.Debug("schedule operation rejected", "op", string(op), "day", day, "err", err.Error())
				return
			}
			appLog.Debug("schedule operation", "op", string(op), "day", day)
		}),
	)
	metrics.Track(sched)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.icsPath != "" {
		if err := importFile(sched, conf, loc, flags.icsPath); err != nil {
			appLog.Error("failed to import calendar file", err, "path", flags.icsPath)
			os.Exit(1)
		}
	}

	srv := web.NewServer(conf, sched, metrics)

	if flags.capture != "" {
		if err := runCapture(ctx, srv, conf, loc, flags); err != nil {
			appLog.Error("capture failed", err, "day", flags.capture)
			os.Exit(1)
		}
		return
	}

	var job *agenda.Job
	if conf.Agenda.Enabled {
		job, err = agenda.NewJob(sched, conf.Agenda.Cron, loc, conf.TimeFormat)
		if err != nil {
			appLog.Error("invalid agenda cron; digest disabled", err, "cron", conf.Agenda.Cron)
		} else {
			job.Start()
		}
	}

	go func() {
		err := config.Watch(ctx, flags.configPath, func(c *config.Config) {
			applyOverrides(c, flags)
			appLog.SetLevel(appLog.ParseLevel(c.LogLevel))
			srv.ApplyConfig(c)
		})
		if err != nil {
			appLog.Error("config watcher stopped", err, "config_path", flags.configPath)
		}
	}()

	if flags.console {
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				appLog.Error("http server failed", err)
			}
		}()
		c := console.New(sched, os.Stdout, conf.TimeFormat, loc)
		if err := c.Run(ctx, os.Stdin); err != nil {
			appLog.Error("console input failed", err)
		}
		stop()
	} else if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("http server failed", err)
		stop()
	}

	if job != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := job.Stop(shutdownCtx); err != nil {
			appLog.Warn("agenda job did not stop cleanly", "err", err)
		}
		cancel()
	}
	appLog.Info("itinerary exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Path to an optional dotenv file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.icsPath, "ics", "", "Import an .ics file into the schedule at startup")
	flag.BoolVar(&cfg.console, "console", false, "Run the interactive console on stdin/stdout")
	flag.StringVar(&cfg.capture, "capture", "", "Capture the page of this day (YYYY-MM-DD, today, tomorrow) as PNG and exit")
	flag.StringVar(&cfg.out, "out", "itinerary.png", "Output path for -capture")

	flag.Parse()

	return cfg
}

// applyOverrides layers environment variables and then flags over the
// file values.
func applyOverrides(c *config.Config, flags flagConfig) {
	c.ApplyEnv(os.Getenv)
	if flags.listen != "" {
		c.Listen = flags.listen
	}
}

func importFile(sched *schedule.Schedule, conf *config.Config, loc *time.Location, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	start, _ := model.DayKeyOf(time.Now().In(loc)).Time(loc)
	res, err := ics.ImportCalendar(sched, ics.Source{ID: path}, body, ics.ExpandConfig{
		DisplayLocation:        loc,
		RangeStart:             start,
		RangeEnd:               start.AddDate(0, 0, conf.Import.HorizonDays),
		MaxOccurrencesPerEvent: conf.Import.MaxOccurrencesPerEvent,
	})
	if err != nil {
		return err
	}
	appLog.Info("calendar file imported", "path", path, "added", res.Added, "skipped", res.Skipped)
	return nil
}

// runCapture serves the site on an ephemeral loopback port and screenshots
// one day page.
func runCapture(ctx context.Context, srv *web.Server, conf *config.Config, loc *time.Location, flags flagConfig) error {
	day, err := model.NewClockParser().ParseDay(flags.capture, time.Now().In(loc))
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("capture server failed", err)
		}
	}()
	defer hs.Close()

	opts := capture.CaptureOptions{
		BaseURL:    "http://" + ln.Addr().String(),
		Day:        day,
		OutputPath: flags.out,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
		Timeout:    time.Duration(conf.Capture.TimeoutSec) * time.Second,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	return capture.CaptureDayPNG(ctx, opts)
}
