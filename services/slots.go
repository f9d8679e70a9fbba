package services

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses a strict "HH:MM" value.
func ParseClockTime(text string) (ClockTime, error) {
	if len(text) != 5 || text[2] != ':' {
		return ClockTime{}, newError(CodeInvalidFormat, "time must be in HH:MM format")
	}
	hour, ok1 := twoDigits(text[0:2])
	minute, ok2 := twoDigits(text[3:5])
	if !ok1 || !ok2 || hour > 23 || minute > 59 {
		return ClockTime{}, newError(CodeInvalidFormat, "time must be in HH:MM format")
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// MustClockTime is ParseClockTime for constants; it panics on malformed input.
func MustClockTime(text string) ClockTime {
	t, err := ParseClockTime(text)
	if err != nil {
		panic(fmt.Sprintf("services: bad clock time %q", text))
	}
	return t
}

func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c ClockTime) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c ClockTime) Before(o ClockTime) bool { return c.Minutes() < o.Minutes() }

func (c ClockTime) After(o ClockTime) bool { return c.Minutes() > o.Minutes() }

// ClockOf returns the wall-clock time of t in loc.
func ClockOf(t time.Time, loc *time.Location) ClockTime {
	t = t.In(loc)
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}
}

// AddMinutes shifts c by minutes, wrapping within one day.
func AddMinutes(c ClockTime, minutes int) ClockTime {
	total := (c.Minutes() + minutes) % minutesPerDay
	if total < 0 {
		total += minutesPerDay
	}
	return ClockTime{Hour: total / 60, Minute: total % 60}
}

// Combine builds the instant of clock time t on the calendar day of day, in loc.
func Combine(day time.Time, t ClockTime, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// Overlaps uses half-open intervals: [aStart, aEnd) and [bStart, bEnd) that only touch
// at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ParseDay parses a "YYYY-MM-DD" calendar day.
func ParseDay(text string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, text)
	if err != nil {
		return time.Time{}, newError(CodeInvalidFormat, "date must be in YYYY-MM-DD format")
	}
	return day, nil
}
