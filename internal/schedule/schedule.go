package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultOpenMinute is used when a schedule has no intervals at all (09:00).
const DefaultOpenMinute = 9 * 60

// HourSpec is the textual form of an interval, e.g. {"09:00", "12:00"}.
type HourSpec struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Interval is an inclusive range of minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Contains reports whether minute lies within the interval, both ends inclusive.
func (iv Interval) Contains(minute int) bool {
	return minute >= iv.Start && minute <= iv.End
}

func (iv Interval) String() string {
	return formatMinute(iv.Start) + "-" + formatMinute(iv.End)
}

// Schedule is an immutable weekly trading calendar.
type Schedule struct {
	days      map[time.Weekday]bool
	intervals []Interval
	loc       *time.Location
}

// New builds a schedule from already parsed parts. A nil location means time.Local.
func New(days []time.Weekday, intervals []Interval, loc *time.Location) *Schedule {
	if loc == nil {
		loc = time.Local
	}
	s := &Schedule{days: make(map[time.Weekday]bool, len(days)), loc: loc}
	for _, d := range days {
		s.days[d] = true
	}
	s.intervals = append(s.intervals, intervals...)
	return s
}

// Parse builds a schedule from English weekday names and HH:MM interval specs.
func Parse(days []string, hours []HourSpec, loc *time.Location) (*Schedule, error) {
	weekdays := make([]time.Weekday, 0, len(days))
	for _, name := range days {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		weekdays = append(weekdays, d)
	}
	intervals := make([]Interval, 0, len(hours))
	for i, h := range hours {
		start, err := ParseClock(h.Start)
		if err != nil {
			return nil, fmt.Errorf("hours[%d].start: %w", i, err)
		}
		end, err := ParseClock(h.End)
		if err != nil {
			return nil, fmt.Errorf("hours[%d].end: %w", i, err)
		}
		if start > end {
			return nil, fmt.Errorf("hours[%d]: start %s is after end %s", i, h.Start, h.End)
		}
		intervals = append(intervals, Interval{Start: start, End: end})
	}
	return New(weekdays, intervals, loc), nil
}

// ParseWeekday accepts a full English weekday name, case-insensitive.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.TrimSpace(name)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), n) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// ParseClock converts a 24h "HH:MM" string to minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, errors.New("time must be HH:MM (24h): " + s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Location returns the time zone the schedule is evaluated in.
func (s *Schedule) Location() *time.Location { return s.loc }

// Intervals returns a copy of the configured intervals in configuration order.
func (s *Schedule) Intervals() []Interval {
	return append([]Interval(nil), s.intervals...)
}

// Days returns the trading days sorted Sunday first.
func (s *Schedule) Days() []time.Weekday {
	out := make([]time.Weekday, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTradingDay reports whether d is in the schedule.
func (s *Schedule) IsTradingDay(d time.Weekday) bool {
	return s.days[d]
}

// IsOpen reports whether now falls on a trading day inside any interval.
// Time of day is taken at minute resolution, so 23:59:30 is inside "..23:59".
func (s *Schedule) IsOpen(now time.Time) bool {
	local := now.In(s.loc)
	if !s.days[local.Weekday()] {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	for _, iv := range s.intervals {
		if iv.Contains(minute) {
			return true
		}
	}
	return false
}

// NextOpen returns the earliest interval start strictly after now.
//
// Today is considered first when it is a trading day; otherwise the search walks
// forward up to a full week, so a single trading day lands on the same weekday
// seven days later. A schedule without days or intervals yields the next calendar
// day at the first configured start (09:00 when there is none).
func (s *Schedule) NextOpen(now time.Time) time.Time {
	local := now.In(s.loc)
	if len(s.days) == 0 || len(s.intervals) == 0 {
		return s.fallback(local)
	}

	if s.days[local.Weekday()] {
		var best time.Time
		for _, iv := range s.intervals {
			at := s.at(local, 0, iv.Start)
			if at.After(now) && (best.IsZero() || at.Before(best)) {
				best = at
			}
		}
		if !best.IsZero() {
			return best
		}
	}

	first := s.earliestStart()
	for offset := 1; offset <= 7; offset++ {
		day := local.AddDate(0, 0, offset)
		if !s.days[day.Weekday()] {
			continue
		}
		if at := s.at(local, offset, first); at.After(now) {
			return at
		}
	}
	return s.fallback(local)
}

// Until returns the time remaining before the next opening.
func (s *Schedule) Until(now time.Time) time.Duration {
	return s.NextOpen(now).Sub(now)
}

func (s *Schedule) earliestStart() int {
	first := s.intervals[0].Start
	for _, iv := range s.intervals[1:] {
		if iv.Start < first {
			first = iv.Start
		}
	}
	return first
}

func (s *Schedule) fallback(local time.Time) time.Time {
	minute := DefaultOpenMinute
	if len(s.intervals) > 0 {
		minute = s.intervals[0].Start
	}
	return s.at(local, 1, minute)
}

// at returns the calendar day offset days after local, at the given minute of day.
func (s *Schedule) at(local time.Time, offset, minute int) time.Time {
	y, m, d := local.Date()
	return time.Date(y, m, d+offset, minute/60, minute%60, 0, 0, s.loc)
}
