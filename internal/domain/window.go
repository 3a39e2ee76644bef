package domain

import (
	"fmt"
	"strings"
	"time"
)

// Window is an inclusive civil-date range that bounds one collection cycle.
// Both ends are normalized to midnight UTC.
type Window struct {
	From time.Time
	To   time.Time
}

// ResolveWindow turns the configured date specs into a concrete window.
// A spec is "today", "yesterday", or an ISO date (YYYY-MM-DD); keywords are
// resolved against now so a long-running agent re-evaluates them every cycle.
func ResolveWindow(fromSpec, toSpec string, now time.Time) (Window, error) {
	from, err := resolveDateSpec(fromSpec, now)
	if err != nil {
		return Window{}, fmt.Errorf("from_date: %w", err)
	}
	to, err := resolveDateSpec(toSpec, now)
	if err != nil {
		return Window{}, fmt.Errorf("to_date: %w", err)
	}
	if from.After(to) {
		return Window{}, fmt.Errorf("from_date %s is after to_date %s",
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return Window{From: from, To: to}, nil
}

func resolveDateSpec(spec string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case "today":
		return truncateToDay(now), nil
	case "yesterday":
		return truncateToDay(now).AddDate(0, 0, -1), nil
	default:
		d, err := time.Parse(time.DateOnly, spec)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q (want today, yesterday, or YYYY-MM-DD)", spec)
		}
		return d, nil
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days returns every day in the window, inclusive on both ends.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.From; !d.After(w.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.From.Format(time.DateOnly), w.To.Format(time.DateOnly))
}
