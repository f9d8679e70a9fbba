package services

import (
	"fmt"
	"time"
)

const (
	MinVisitMinutes = 30
	MaxVisitMinutes = 360
)

// OperatingWindow is the restaurant's single daily service window plus seating
// durations. It is immutable after construction.
type OperatingWindow struct {
	Open          ClockTime
	Close         ClockTime
	VisitMinutes  int
	BufferMinutes int
	Location      *time.Location
}

// Slot is one bookable start/end pair within the window.
type Slot struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// NewOperatingWindow validates and builds an OperatingWindow. A default visit must fit
// between open and close on the same day.
func NewOperatingWindow(open, close ClockTime, visitMinutes, bufferMinutes int, loc *time.Location) (OperatingWindow, error) {
	if loc == nil {
		loc = time.Local
	}
	if visitMinutes <= 0 {
		return OperatingWindow{}, fmt.Errorf("visit duration must be positive, got %d", visitMinutes)
	}
	if bufferMinutes < 0 {
		return OperatingWindow{}, fmt.Errorf("buffer must not be negative, got %d", bufferMinutes)
	}
	if !close.After(open) {
		return OperatingWindow{}, fmt.Errorf("close time %s must be after open time %s", close, open)
	}
	if open.Minutes()+visitMinutes > minutesPerDay || AddMinutes(open, visitMinutes).After(close) {
		return OperatingWindow{}, fmt.Errorf("a %d minute visit starting at %s ends after close time %s", visitMinutes, open, close)
	}
	return OperatingWindow{
		Open:          open,
		Close:         close,
		VisitMinutes:  visitMinutes,
		BufferMinutes: bufferMinutes,
		Location:      loc,
	}, nil
}

func (w OperatingWindow) Visit() time.Duration { return time.Duration(w.VisitMinutes) * time.Minute }

func (w OperatingWindow) Buffer() time.Duration { return time.Duration(w.BufferMinutes) * time.Minute }

// ResolveVisit returns minutes, or the default visit when minutes is zero.
func (w OperatingWindow) ResolveVisit(minutes int) int {
	if minutes <= 0 {
		return w.VisitMinutes
	}
	return minutes
}

// Combine builds the local instant for clock time t on day.
func (w OperatingWindow) Combine(day time.Time, t ClockTime) time.Time {
	return Combine(day, t, w.Location)
}

// ClosingInstant is the instant the window closes on day.
func (w OperatingWindow) ClosingInstant(day time.Time) time.Time {
	return w.Combine(day, w.Close)
}

// Slots lists back-to-back start times stepping by visit+buffer from the open time,
// keeping every slot whose end is at or before close.
func (w OperatingWindow) Slots(visitMinutes int) []Slot {
	visit := w.ResolveVisit(visitMinutes)
	step := visit + w.BufferMinutes
	slots := make([]Slot, 0)
	for start := w.Open.Minutes(); start+visit <= w.Close.Minutes(); start += step {
		begin := AddMinutes(ClockTime{}, start)
		slots = append(slots, Slot{Start: begin, End: AddMinutes(begin, visit)})
	}
	return slots
}
