package services

import (
	"errors"
	"time"

	"github.com/yeremiapane/restobooker/models"
	"gorm.io/gorm"
)

// AvailabilityResult describes whether one table is free for a requested interval.
type AvailabilityResult struct {
	Table          models.Table
	Available      bool
	Start          time.Time
	End            time.Time
	AvailableUntil *time.Time
}

type AvailabilityService struct {
	db     *gorm.DB
	window OperatingWindow
}

func NewAvailabilityService(db *gorm.DB, window OperatingWindow) *AvailabilityService {
	return &AvailabilityService{db: db, window: window}
}

// WithDB returns a copy bound to db, typically an open transaction.
func (s *AvailabilityService) WithDB(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db, window: s.window}
}

func (s *AvailabilityService) Window() OperatingWindow { return s.window }

// TableIsFree reports whether no active reservation on tableID overlaps [start, end).
func (s *AvailabilityService) TableIsFree(tableID uint, start, end time.Time) (bool, error) {
	return tableIsFree(s.db, tableID, start, end)
}

// TableIsFreeLocked is TableIsFree as a locking read. Inside a MySQL transaction it
// sees reservations committed after the transaction's first read.
func (s *AvailabilityService) TableIsFreeLocked(tableID uint, start, end time.Time) (bool, error) {
	return tableIsFree(lockForUpdate(s.db), tableID, start, end)
}

func tableIsFree(db *gorm.DB, tableID uint, start, end time.Time) (bool, error) {
	var count int64
	err := db.Model(&models.Reservation{}).
		Where("table_id = ? AND status IN ?", tableID, models.ActiveStatuses).
		Where("datetime_start < ? AND datetime_end > ?", end.UTC(), start.UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// NextStartAfter returns the start of the earliest active reservation on tableID
// starting at or after start, or nil when there is none.
func (s *AvailabilityService) NextStartAfter(tableID uint, start time.Time) (*time.Time, error) {
	var next models.Reservation
	err := s.db.Select("datetime_start").
		Where("table_id = ? AND status IN ?", tableID, models.ActiveStatuses).
		Where("datetime_start >= ?", start.UTC()).
		Order("datetime_start ASC").
		First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	at := next.DatetimeStart.In(s.window.Location)
	return &at, nil
}

// AvailableUntil is the latest advisory end time on tableID for a booking starting
// at start: the next booking's start minus the buffer, capped at closing time.
func (s *AvailabilityService) AvailableUntil(tableID uint, day, start time.Time) (time.Time, error) {
	closing := s.window.ClosingInstant(day)
	next, err := s.NextStartAfter(tableID, start)
	if err != nil {
		return time.Time{}, err
	}
	if next != nil {
		if candidate := next.Add(-s.window.Buffer()); candidate.Before(closing) {
			return candidate, nil
		}
	}
	return closing, nil
}

// CheckAvailability evaluates table for guests on day at start. visitMinutes of zero
// uses the window default.
func (s *AvailabilityService) CheckAvailability(table models.Table, day time.Time, start ClockTime, guests, visitMinutes int) (AvailabilityResult, error) {
	startAt := s.window.Combine(day, start)
	endAt := startAt.Add(time.Duration(s.window.ResolveVisit(visitMinutes)) * time.Minute)
	result := AvailabilityResult{Table: table, Start: startAt, End: endAt}

	if !table.IsActive || int(table.Capacity) < guests {
		return result, nil
	}
	free, err := s.TableIsFree(table.ID, startAt, endAt)
	if err != nil {
		return result, err
	}
	if !free {
		return result, nil
	}
	until, err := s.AvailableUntil(table.ID, day, startAt)
	if err != nil {
		return result, err
	}
	result.Available = true
	result.AvailableUntil = &until
	return result, nil
}

// CheckAvailabilityForTables runs CheckAvailability for each table, keeping order.
func (s *AvailabilityService) CheckAvailabilityForTables(tables []models.Table, day time.Time, start ClockTime, guests, visitMinutes int) ([]AvailabilityResult, error) {
	results := make([]AvailabilityResult, 0, len(tables))
	for _, table := range tables {
		result, err := s.CheckAvailability(table, day, start, guests, visitMinutes)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
