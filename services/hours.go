package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"salgados/models"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var (
	ErrClosedOnDate     = errors.New("the shop is closed on this date")
	ErrOutsideHours     = errors.New("time is outside working hours")
	ErrScheduleInPast   = errors.New("requested time is in the past")
	ErrInvalidClock     = errors.New("time must be HH:MM")
	ErrInvalidDate      = errors.New("date must be YYYY-MM-DD")
	errDegenerateBounds = errors.New("start equals end")
)

// parseClock turns "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil || len(s) != len(clockLayout) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Interval is a working interval in "HH:MM".
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// contains applies the single interval rule used everywhere:
//   - start == end == 00:00 is open all day
//   - start == end otherwise is an empty interval
//   - start < end is [start, end)
//   - start > end wraps midnight, so end == 00:00 means "until midnight"
func (iv Interval) contains(clock string) (bool, error) {
	t, err := parseClock(clock)
	if err != nil {
		return false, err
	}
	start, err := parseClock(iv.Start)
	if err != nil {
		return false, err
	}
	end, err := parseClock(iv.End)
	if err != nil {
		return false, err
	}
	switch {
	case start == end && start == 0:
		return true, nil
	case start == end:
		return false, errDegenerateBounds
	case start < end:
		return start <= t && t < end, nil
	default:
		return t >= start || t < end, nil
	}
}

func weekdayKey(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// IsOpenNow reports whether the shop is open at now, evaluated in the shop's
// timezone. Any failure (unknown timezone, malformed schedule) reads as closed.
func IsOpenNow(schedule models.WeeklySchedule, holidays []string, timezone string, now time.Time) bool {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false
	}
	local := now.In(loc)
	date := local.Format(dateLayout)
	for _, h := range holidays {
		if h == date {
			return false
		}
	}
	day, ok := schedule[weekdayKey(local.Weekday())]
	if !ok || !day.Open {
		return false
	}
	open, err := Interval{Start: day.Start, End: day.End}.contains(local.Format(clockLayout))
	if err != nil {
		return false
	}
	return open
}

// WorkingIntervalFor returns the interval configured for the weekday of date,
// or nil when the shop does not open that day or date does not parse.
func WorkingIntervalFor(schedule models.WeeklySchedule, date string) *Interval {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil
	}
	day, ok := schedule[weekdayKey(d.Weekday())]
	if !ok || !day.Open {
		return nil
	}
	return &Interval{Start: day.Start, End: day.End}
}

// ValidateScheduledMoment checks a requested date and time against the working
// interval of that day, and rejects moments before the current store-local
// hour. It returns nil when the moment is acceptable.
func ValidateScheduledMoment(schedule models.WeeklySchedule, timezone, date, clock string, now time.Time) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if _, err := parseClock(clock); err != nil {
		return err
	}
	iv := WorkingIntervalFor(schedule, date)
	if iv == nil {
		return ErrClosedOnDate
	}
	if ok, err := iv.contains(clock); err != nil || !ok {
		return fmt.Errorf("%w: choose a time between %s and %s", ErrOutsideHours, iv.Start, iv.End)
	}
	if inPast(timezone, date, clock, now) {
		return ErrScheduleInPast
	}
	return nil
}

// inPast is best effort: an unknown timezone never rejects.
func inPast(timezone, date, clock string, now time.Time) bool {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false
	}
	requested, err := time.ParseInLocation(dateLayout+" "+clockLayout, date+" "+clock, loc)
	if err != nil {
		return false
	}
	local := now.In(loc)
	floor := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
	return requested.Before(floor)
}

// StoreLocalNow returns now in the shop timezone, falling back to UTC.
func StoreLocalNow(timezone string, now time.Time) time.Time {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return now.UTC()
	}
	return now.In(loc)
}
