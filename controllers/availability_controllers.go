package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/services"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
)

type AvailabilityController struct {
	DB           *gorm.DB
	Availability *services.AvailabilityService
}

func NewAvailabilityController(db *gorm.DB, window services.OperatingWindow) *AvailabilityController {
	return &AvailabilityController{DB: db, Availability: services.NewAvailabilityService(db, window)}
}

type availabilityTable struct {
	ID             uint             `json:"id"`
	Name           string           `json:"name"`
	Capacity       uint             `json:"capacity"`
	Type           models.TableType `json:"type"`
	X              float64          `json:"x"`
	Y              float64          `json:"y"`
	Available      bool             `json:"available"`
	AvailableUntil *string          `json:"available_until"`
}

// parseDuration reads the optional duration query parameter in minutes.
func parseDuration(c *gin.Context) (int, bool) {
	raw := c.Query("duration")
	if raw == "" {
		return 0, true
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes < services.MinVisitMinutes || minutes > services.MaxVisitMinutes {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "duration must be between 30 and 360 minutes",
			map[string][]string{"duration": {"duration must be between 30 and 360 minutes"}})
		return 0, false
	}
	return minutes, true
}

// GetAvailability -> status tiap meja aktif untuk date/start/guests
func (ac *AvailabilityController) GetAvailability(c *gin.Context) {
	dateRaw, startRaw, guestsRaw := c.Query("date"), c.Query("start"), c.Query("guests")
	if dateRaw == "" || startRaw == "" || guestsRaw == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("date, start and guests are required"))
		return
	}
	day, err := services.ParseDay(dateRaw)
	if err != nil {
		respondServiceError(c, services.WithField(err, "date"))
		return
	}
	start, err := services.ParseClockTime(startRaw)
	if err != nil {
		respondServiceError(c, services.WithField(err, "start"))
		return
	}
	guests, err := strconv.Atoi(guestsRaw)
	if err != nil || guests < 1 {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "guests must be a positive integer",
			map[string][]string{"guests": {"guests must be a positive integer"}})
		return
	}
	areaID, ok := optionalUintQuery(c, "area")
	if !ok {
		return
	}
	duration, ok := parseDuration(c)
	if !ok {
		return
	}

	query := activeTables(ac.DB, areaID)
	if typeRaw := c.Query("type"); typeRaw != "" {
		tableType, ok := models.ParseTableType(typeRaw)
		if !ok {
			utils.RespondFieldErrors(c, http.StatusBadRequest, "unknown table type",
				map[string][]string{"type": {"unknown table type"}})
			return
		}
		query = query.Where("tables.type = ?", tableType)
	}
	var tables []models.Table
	if err := query.Find(&tables).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	results, err := ac.Availability.CheckAvailabilityForTables(tables, day, start, guests, duration)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	loc := ac.Availability.Window().Location
	items := make([]availabilityTable, 0, len(results))
	for _, r := range results {
		item := availabilityTable{
			ID:        r.Table.ID,
			Name:      r.Table.Name,
			Capacity:  r.Table.Capacity,
			Type:      r.Table.Type,
			X:         r.Table.X,
			Y:         r.Table.Y,
			Available: r.Available,
		}
		if r.AvailableUntil != nil {
			until := services.ClockOf(*r.AvailableUntil, loc).String()
			item.AvailableUntil = &until
		}
		items = append(items, item)
	}

	utils.RespondJSON(c, http.StatusOK, "Availability", gin.H{
		"date":     day.Format("2006-01-02"),
		"start":    start.String(),
		"guests":   guests,
		"area":     areaID,
		"duration": ac.Availability.Window().ResolveVisit(duration),
		"tables":   items,
	})
}

// GetSlots -> daftar slot standar dalam jam operasional
func (ac *AvailabilityController) GetSlots(c *gin.Context) {
	duration, ok := parseDuration(c)
	if !ok {
		return
	}
	window := ac.Availability.Window()
	utils.RespondJSON(c, http.StatusOK, "Slots", gin.H{
		"open":     window.Open.String(),
		"close":    window.Close.String(),
		"duration": window.ResolveVisit(duration),
		"buffer":   window.BufferMinutes,
		"slots":    window.Slots(duration),
	})
}
