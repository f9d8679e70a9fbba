package services

import (
	"time"

	"github.com/yeremiapane/restobooker/models"
)

// PickResult is the outcome of TablePicker.PickTable. Table is nil when nothing fits.
type PickResult struct {
	Table          *models.Table
	Start          time.Time
	End            time.Time
	AvailableUntil *time.Time
}

// TablePicker chooses the smallest active table that seats the party and is free.
type TablePicker struct {
	availability *AvailabilityService
}

func NewTablePicker(availability *AvailabilityService) *TablePicker {
	return &TablePicker{availability: availability}
}

// PickTable scans candidates ordered by capacity then id and returns the first free
// one. areaID narrows the search to one area when set.
func (p *TablePicker) PickTable(day time.Time, start ClockTime, guests int, areaID *uint, visitMinutes int) (PickResult, error) {
	return p.PickTableExcluding(day, start, guests, areaID, visitMinutes, nil)
}

// PickTableExcluding is PickTable with the tables in exclude left out.
func (p *TablePicker) PickTableExcluding(day time.Time, start ClockTime, guests int, areaID *uint, visitMinutes int, exclude []uint) (PickResult, error) {
	window := p.availability.Window()
	startAt := window.Combine(day, start)
	endAt := startAt.Add(time.Duration(window.ResolveVisit(visitMinutes)) * time.Minute)
	result := PickResult{Start: startAt, End: endAt}

	query := p.availability.db.Where("is_active = ? AND capacity >= ?", true, guests)
	if areaID != nil {
		query = query.Where("area_id = ?", *areaID)
	}
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	var candidates []models.Table
	if err := query.Order("capacity ASC").Order("id ASC").Find(&candidates).Error; err != nil {
		return result, err
	}

	for i := range candidates {
		free, err := p.availability.TableIsFree(candidates[i].ID, startAt, endAt)
		if err != nil {
			return result, err
		}
		if !free {
			continue
		}
		until, err := p.availability.AvailableUntil(candidates[i].ID, day, startAt)
		if err != nil {
			return result, err
		}
		result.Table = &candidates[i]
		result.AvailableUntil = &until
		return result, nil
	}
	return result, nil
}
