package merger

import (
	"fmt"
	"strings"
	"time"
)

type WindowKind int

const (
	// Rolling windows look back a fixed span from now.
	Rolling WindowKind = iota
	// CalendarDay windows start at local midnight.
	CalendarDay
)

// Window is the recency threshold that decides whether a source updates
// the current fact version or forks a new one.
type Window struct {
	Kind WindowKind
	Span time.Duration
}

// ParseWindow accepts a Go duration ("12h", "24h") or "calendar-day".
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "calendar-day", "calendar_day", "day":
		return Window{Kind: CalendarDay}, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window %q: %w", s, err)
	}
	if d <= 0 {
		return Window{}, fmt.Errorf("invalid window %q: must be positive", s)
	}
	return Window{Kind: Rolling, Span: d}, nil
}

// Since returns the earliest created_at still inside the window.
func (w Window) Since(now time.Time, loc *time.Location) time.Time {
	if w.Kind == CalendarDay {
		if loc == nil {
			loc = time.UTC
		}
		local := now.In(loc)
		y, m, d := local.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC()
	}
	return now.Add(-w.Span).UTC()
}

func (w Window) String() string {
	if w.Kind == CalendarDay {
		return "calendar-day"
	}
	return w.Span.String()
}

// Policy is the per-source merge behaviour.
type Policy struct {
	Window Window
	// Originate lets the source create the first fact row for an EAN it
	// has never seen. Sources without it skip unknown EANs.
	Originate bool
}
