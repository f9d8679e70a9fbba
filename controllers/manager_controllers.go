package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobooker/hub"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/services"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
)

// MetricsSource reports notification delivery counters.
type MetricsSource interface {
	Metrics() services.NotificationMetrics
}

// ManagerController serves the staff side of reservations.
type ManagerController struct {
	DB      *gorm.DB
	Status  *services.StatusService
	Tokens  *services.SignedTokens
	Site    services.SiteInfo
	Metrics MetricsSource
}

func NewManagerController(db *gorm.DB, status *services.StatusService, tokens *services.SignedTokens, site services.SiteInfo, metrics MetricsSource) *ManagerController {
	return &ManagerController{DB: db, Status: status, Tokens: tokens, Site: site, Metrics: metrics}
}

func (mc *ManagerController) broadcastStatus(r *models.Reservation) reservationItem {
	item := newReservationItem(*r, mc.Site.Location)
	hub.BroadcastBookingStatus(item)
	return item
}

// ConfirmBooking -> konfirmasi oleh staff, idempoten
func (mc *ManagerController) ConfirmBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	r, changed, err := mc.Status.Confirm(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if changed {
		mc.broadcastStatus(r)
	}
	utils.RespondJSON(c, http.StatusOK, "Booking confirmed", gin.H{"ok": true, "id": r.ID, "status": r.Status, "changed": changed})
}

// CheckIn -> scan QR dari email konfirmasi saat tamu datang
func (mc *ManagerController) CheckIn(c *gin.Context) {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Token == "" {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "token is required", map[string][]string{"token": {"token is required"}})
		return
	}
	id, err := mc.Tokens.VerifyQRToken(body.Token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	r, changed, err := mc.Status.CheckIn(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	item := newReservationItem(*r, mc.Site.Location)
	if changed {
		hub.BroadcastBookingStatus(item)
	}
	utils.RespondJSON(c, http.StatusOK, "Guest checked in", gin.H{"ok": true, "changed": changed, "booking": item})
}

// CancelBooking -> pembatalan oleh staff dari status apa pun
func (mc *ManagerController) CancelBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	r, err := mc.Status.CancelByStaff(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	mc.broadcastStatus(r)
	utils.RespondJSON(c, http.StatusOK, "Booking canceled", gin.H{"ok": true, "id": r.ID, "status": r.Status})
}

// SetBookingStatus -> set status apa pun dari enumerasi
func (mc *ManagerController) SetBookingStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	r, err := mc.Status.SetStatus(id, body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	mc.broadcastStatus(r)
	utils.RespondJSON(c, http.StatusOK, "Booking status updated", gin.H{"ok": true, "id": r.ID, "status": r.Status})
}

// GetStatuses -> daftar kode status dan label
func (mc *ManagerController) GetStatuses(c *gin.Context) {
	statuses := make([]gin.H, 0, len(models.ReservationStatuses))
	for _, s := range models.ReservationStatuses {
		statuses = append(statuses, gin.H{"code": s, "label": s.Label()})
	}
	utils.RespondJSON(c, http.StatusOK, "Statuses", statuses)
}

func filterUint(c *gin.Context, q *gorm.DB, key, column string) (*gorm.DB, bool) {
	raw := c.Query(key)
	if raw == "" {
		return q, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "invalid "+key, map[string][]string{key: {"must be a positive integer"}})
		return nil, false
	}
	return q.Where(column+" = ?", uint(v)), true
}

// GetBookings -> daftar booking dengan filter tanggal, status, meja, area, user
func (mc *ManagerController) GetBookings(c *gin.Context) {
	loc := mc.Site.Location
	q := mc.DB.Model(&models.Reservation{}).Preload("Table.Area")

	if raw := c.Query("date_from"); raw != "" {
		day, err := services.ParseDay(raw)
		if err != nil {
			respondServiceError(c, services.WithField(err, "date_from"))
			return
		}
		from := services.Combine(day, services.ClockTime{}, loc)
		q = q.Where("datetime_start >= ?", from.UTC())
	}
	if raw := c.Query("date_to"); raw != "" {
		day, err := services.ParseDay(raw)
		if err != nil {
			respondServiceError(c, services.WithField(err, "date_to"))
			return
		}
		until := services.Combine(day, services.ClockTime{}, loc).AddDate(0, 0, 1)
		q = q.Where("datetime_start < ?", until.UTC())
	}
	if raw := c.QueryArray("status"); len(raw) > 0 {
		statuses := make([]models.ReservationStatus, 0, len(raw))
		for _, code := range raw {
			s, ok := models.ParseReservationStatus(code)
			if !ok {
				respondServiceError(c, &services.BookingError{
					Code:    services.CodeInvalidStatus,
					Message: "unknown status " + code,
					Fields:  []services.FieldError{{Field: "status", Message: "unknown status " + code}},
				})
				return
			}
			statuses = append(statuses, s)
		}
		q = q.Where("status IN ?", statuses)
	}

	var ok bool
	if q, ok = filterUint(c, q, "table", "table_id"); !ok {
		return
	}
	if q, ok = filterUint(c, q, "user", "user_id"); !ok {
		return
	}
	if raw := c.Query("area"); raw != "" {
		areaID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.RespondFieldErrors(c, http.StatusBadRequest, "invalid area", map[string][]string{"area": {"must be a positive integer"}})
			return
		}
		q = q.Where("table_id IN (?)", mc.DB.Model(&models.Table{}).Select("id").Where("area_id = ?", uint(areaID)))
	}

	var reservations []models.Reservation
	if err := q.Order("datetime_start DESC").Order("created_at DESC").Find(&reservations).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	results := newReservationItems(reservations, loc)
	utils.RespondJSON(c, http.StatusOK, "Bookings", gin.H{"count": len(results), "results": results})
}

// GetBooking -> detail booking untuk staff
func (mc *ManagerController) GetBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var r models.Reservation
	err := mc.DB.Preload("Table.Area").First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondServiceError(c, errReservationNotFound)
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Booking detail", newReservationItem(r, mc.Site.Location))
}

// GetNotifications -> log pengiriman notifikasi dan counter worker
func (mc *ManagerController) GetNotifications(c *gin.Context) {
	q := mc.DB.Model(&models.Notification{})
	if raw := c.Query("reservation"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.RespondFieldErrors(c, http.StatusBadRequest, "invalid reservation", map[string][]string{"reservation": {"must be a positive integer"}})
			return
		}
		q = q.Where("reservation_id = ?", uint(id))
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	var notifs []models.Notification
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&notifs).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	data := gin.H{"results": notifs}
	if mc.Metrics != nil {
		data["metrics"] = mc.Metrics.Metrics()
	}
	utils.RespondJSON(c, http.StatusOK, "Notifications", data)
}
