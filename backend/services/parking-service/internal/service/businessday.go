package service

import (
	"time"
)

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether neither bound is set.
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// BusinessDay returns the operating day containing now. A day starts at cutoverHour local
// time, so early-morning instants belong to the previous calendar day.
func BusinessDay(now time.Time, loc *time.Location, cutoverHour int) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	day := local.Day()
	if local.Hour() < cutoverHour {
		day--
	}
	from := time.Date(local.Year(), local.Month(), day, cutoverHour, 0, 0, 0, loc)
	to := time.Date(from.Year(), from.Month(), from.Day()+1, cutoverHour, 0, 0, 0, loc)
	return Window{From: from, To: to}
}

// resolveLocation loads name, falling back to def when it is empty or unknown.
func resolveLocation(name string, def *time.Location) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if def == nil {
		return time.UTC
	}
	return def
}
