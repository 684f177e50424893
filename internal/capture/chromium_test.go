package capture

import (
	"context"
	"testing"
)

func TestDayURL(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		opts CaptureOptions
		want string
	}{
		{"plain", CaptureOptions{BaseURL: "http://127.0.0.1:8080", Day: "2025-06-01"}, "http://127.0.0.1:8080/day/2025-06-01"},
		{"trailing slash", CaptureOptions{BaseURL: "http://localhost:8080/", Day: "2025-06-01"}, "http://localhost:8080/day/2025-06-01"},
		{"host only", CaptureOptions{BaseURL: "127.0.0.1:9000", Day: "2025-12-31"}, "http://127.0.0.1:9000/day/2025-12-31"},
		{"auth", CaptureOptions{BaseURL: "http://h", Day: "2025-06-01", Username: "u", Password: "p"}, "http://u:p@h/day/2025-06-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.opts.DayURL()
			if err != nil {
				t.Fatalf("DayURL error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("DayURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCaptureDayPNGValidatesOptions(t *testing.T) {
	t.Parallel()
	bad := []CaptureOptions{
		{Day: "2025-06-01", OutputPath: "x.png"},
		{BaseURL: "http://h", Day: "June 1st", OutputPath: "x.png"},
		{BaseURL: "http://h", Day: "2025-06-01"},
	}
	for _, opts := range bad {
		if err := CaptureDayPNG(context.Background(), opts); err == nil {
			t.Fatalf("CaptureDayPNG(%+v) = nil, want error", opts)
		}
	}
}
