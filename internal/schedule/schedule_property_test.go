package schedule

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var propertyIntervals = []HourSpec{
	{"21:00", "23:59"},
	{"09:00", "12:00"},
	{"11:30", "13:15"},
	{"15:00", "18:00"},
}

func propertySchedule(t *testing.T, dayMask int, count int) *Schedule {
	t.Helper()
	var days []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if dayMask&(1<<uint(d)) != 0 {
			days = append(days, d.String())
		}
	}
	s, err := Parse(days, propertyIntervals[:count], time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return s
}

// Property: IsOpen equals the OR of each interval membership test on trading days.
func TestProperty_IsOpenMatchesIntervalMembership(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

	properties.Property("open iff trading day and inside some interval", prop.ForAll(
		func(dayMask int, count int, offset int64) bool {
			s := propertySchedule(t, dayMask, count)
			now := time.Unix(base+offset, 0).UTC()

			minute := now.Hour()*60 + now.Minute()
			want := false
			if s.IsTradingDay(now.Weekday()) {
				for _, iv := range s.Intervals() {
					want = want || (minute >= iv.Start && minute <= iv.End)
				}
			}
			return s.IsOpen(now) == want
		},
		gen.IntRange(0, 127),
		gen.IntRange(1, len(propertyIntervals)),
		gen.Int64Range(0, 4*7*24*3600),
	))

	properties.TestingRun(t)
}

// Property: NextOpen is strictly after now and lands on a configured start of a trading day.
func TestProperty_NextOpenLandsOnStart(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

	properties.Property("next open is a future interval start", prop.ForAll(
		func(dayMask int, count int, offset int64) bool {
			s := propertySchedule(t, dayMask, count)
			now := time.Unix(base+offset, 0).UTC()
			next := s.NextOpen(now)

			if !next.After(now) {
				return false
			}
			if next.Sub(now) > 8*24*time.Hour {
				return false
			}
			if !s.IsTradingDay(next.Weekday()) {
				return false
			}
			minute := next.Hour()*60 + next.Minute()
			for _, iv := range s.Intervals() {
				if iv.Start == minute && next.Second() == 0 {
					return s.IsOpen(next)
				}
			}
			return false
		},
		gen.IntRange(1, 127),
		gen.IntRange(1, len(propertyIntervals)),
		gen.Int64Range(0, 4*7*24*3600),
	))

	properties.TestingRun(t)
}
