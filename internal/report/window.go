package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hoteldesk/internal/apperrors"
)

const DateLayout = "2006-01-02"

// Window is a reporting period. Both Start and End are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

func NewWindow(start, end time.Time) (Window, error) {
	start, end = start.UTC(), end.UTC()
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: end date %s is before start date %s",
			apperrors.ErrValidation, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindow parses ISO-8601 dates (2006-01-02) or RFC3339 timestamps.
// A date-only end covers that whole day.
func ParseWindow(startStr, endStr string) (Window, error) {
	start, _, err := parseDate(startStr)
	if err != nil {
		return Window{}, fmt.Errorf("%w: invalid start date %q", apperrors.ErrValidation, startStr)
	}
	end, dateOnly, err := parseDate(endStr)
	if err != nil {
		return Window{}, fmt.Errorf("%w: invalid end date %q", apperrors.ErrValidation, endStr)
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return NewWindow(start, end)
}

func parseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}

// TrailingWindow covers the given number of days ending at now.
func TrailingWindow(now time.Time, days int) Window {
	now = now.UTC()
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}

// Days returns every UTC calendar day touched by the window, in order.
func (w Window) Days() []time.Time {
	var days []time.Time
	last := truncateDay(w.End)
	for d := truncateDay(w.Start); !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (w Window) Label() string {
	return w.Start.Format(DateLayout) + " - " + w.End.Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return truncateDay(t).Format(DateLayout)
}
