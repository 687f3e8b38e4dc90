package calendar

import (
	"fmt"
	"strings"
	"time"

	"okx-short-bot/config"
)

// window is a compiled quiet period: a daily UTC clock range, optionally
// restricted to weekdays and symbols. A range whose end precedes its start
// crosses midnight.
type window struct {
	label    string
	start    time.Duration
	end      time.Duration
	weekdays map[time.Weekday]bool // Empty = every day
	symbols  map[string]bool       // Empty = all symbols
}

// Calendar answers whether a symbol is inside a configured news or
// maintenance window at a given instant. Evaluated in UTC.
type Calendar struct {
	windows []window
}

// New compiles the configured windows. Clock strings were already validated
// at config load, but a second parse keeps the constructor standalone.
func New(configured []config.NewsWindow) (*Calendar, error) {
	cal := &Calendar{}
	for _, nw := range configured {
		start, err := parseClock(nw.StartUTC)
		if err != nil {
			return nil, fmt.Errorf("window %q: bad start_utc: %w", nw.Label, err)
		}
		end, err := parseClock(nw.EndUTC)
		if err != nil {
			return nil, fmt.Errorf("window %q: bad end_utc: %w", nw.Label, err)
		}

		w := window{
			label:    nw.Label,
			start:    start,
			end:      end,
			weekdays: map[time.Weekday]bool{},
			symbols:  map[string]bool{},
		}
		for _, day := range nw.Weekdays {
			wd, err := parseWeekday(day)
			if err != nil {
				return nil, fmt.Errorf("window %q: %w", nw.Label, err)
			}
			w.weekdays[wd] = true
		}
		for _, sym := range nw.Symbols {
			w.symbols[strings.ToUpper(sym)] = true
		}
		cal.windows = append(cal.windows, w)
	}
	return cal, nil
}

// InWindow reports whether any configured window covers the symbol at the
// given instant
func (c *Calendar) InWindow(symbol string, at time.Time) bool {
	return c.ActiveWindow(symbol, at) != ""
}

// ActiveWindow returns the label of the first window covering the symbol at
// the given instant, or an empty string
func (c *Calendar) ActiveWindow(symbol string, at time.Time) string {
	utc := at.UTC()
	clock := time.Duration(utc.Hour())*time.Hour + time.Duration(utc.Minute())*time.Minute

	for _, w := range c.windows {
		if len(w.weekdays) > 0 && !w.weekdays[utc.Weekday()] {
			continue
		}
		if len(w.symbols) > 0 && !w.symbols[strings.ToUpper(symbol)] {
			continue
		}
		if w.covers(clock) {
			return w.label
		}
	}
	return ""
}

func (w window) covers(clock time.Duration) bool {
	if w.start <= w.end {
		return clock >= w.start && clock < w.end
	}
	// Crosses midnight
	return clock >= w.start || clock < w.end
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(s) {
	case "sun", "sunday":
		return time.Sunday, nil
	case "mon", "monday":
		return time.Monday, nil
	case "tue", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
