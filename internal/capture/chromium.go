package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	appLog "itinerary/internal/log"
	"itinerary/internal/model"
)

// Default capture parameters, sized for a portrait printout of one day.
const (
	DefaultWidth      = 800
	DefaultHeight     = 1200
	DefaultTimeoutSec = 30
)

// ReadySelector matches the root element of a fully rendered day page.
const ReadySelector = `[data-ready="true"]`

// CaptureOptions defines parameters for a Chromium-based screenshot capture.
type CaptureOptions struct {
	// BaseURL is the server root, e.g. "http://127.0.0.1:8080".
	BaseURL string

	// Day selects the /day/{day} page to capture.
	Day model.DayKey

	// OutputPath is where the PNG screenshot will be written.
	OutputPath string

	// Username / Password are sent as HTTP Basic Auth when set.
	Username string
	Password string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation. If zero,
	// DefaultTimeoutSec is used.
	Timeout time.Duration
}

// DayURL returns the page URL for opts.Day, with credentials embedded
// when basic auth is configured.
func (opts CaptureOptions) DayURL() (string, error) {
	if opts.BaseURL == "" {
		return "", fmt.Errorf("capture: BaseURL is required")
	}
	if _, err := model.ParseDayKey(opts.Day.String()); err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	base := opts.BaseURL
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/day/" + opts.Day.String())
	if err != nil {
		return "", fmt.Errorf("capture: invalid BaseURL: %w", err)
	}
	if opts.Username != "" {
		u.User = url.UserPassword(opts.Username, opts.Password)
	}
	return u.String(), nil
}

// CaptureDayPNG launches a headless Chromium instance via chromedp,
// navigates to the /day/{day} page, waits for ReadySelector and writes a
// full-page PNG screenshot to opts.OutputPath.
func CaptureDayPNG(parentCtx context.Context, opts CaptureOptions) error {
	target, err := opts.DayURL()
	if err != nil {
		return err
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}

	start := time.Now()
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	appLog.Info("day captured", "day", opts.Day, "out", opts.OutputPath, "bytes", len(png), "took", time.Since(start).String())
	return nil
}
