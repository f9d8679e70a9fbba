package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobooker/hub"
	"github.com/yeremiapane/restobooker/middlewares"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/services"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
)

// BookingController serves the guest side of reservations.
type BookingController struct {
	DB       *gorm.DB
	Bookings *services.BookingService
	Status   *services.StatusService
	Tokens   *services.SignedTokens
	Site     services.SiteInfo
	Clock    services.Clock
}

func NewBookingController(db *gorm.DB, bookings *services.BookingService, status *services.StatusService, tokens *services.SignedTokens, site services.SiteInfo, clock services.Clock) *BookingController {
	if clock == nil {
		clock = services.RealClock{}
	}
	return &BookingController{DB: db, Bookings: bookings, Status: status, Tokens: tokens, Site: site, Clock: clock}
}

// CreateBooking -> booking baru, anonim atau user login
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req services.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := currentUser(c, bc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user not found"))
		return
	}

	reservation, err := bc.Bookings.CreateReservation(req, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	item := newReservationItem(*reservation, bc.Site.Location)
	hub.BroadcastBookingCreated(item)
	utils.RespondJSON(c, http.StatusCreated, "Booking created", item)
}

// ownedReservation loads reservation :id of the current user with its table and area.
func (bc *BookingController) ownedReservation(c *gin.Context) (*models.Reservation, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	userID, _ := middlewares.CurrentUserID(c)

	var r models.Reservation
	err := bc.DB.Preload("Table.Area").First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondServiceError(c, errReservationNotFound)
		return nil, false
	}
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	if r.UserID == nil || *r.UserID != userID {
		respondServiceError(c, errNotOwner)
		return nil, false
	}
	return &r, true
}

// GetMyBookingsByStatus -> booking milik user, dikelompokkan per status
func (bc *BookingController) GetMyBookingsByStatus(c *gin.Context) {
	userID, _ := middlewares.CurrentUserID(c)

	var reservations []models.Reservation
	if err := bc.DB.Preload("Table.Area").
		Where("user_id = ?", userID).
		Order("datetime_start DESC").Order("created_at DESC").
		Find(&reservations).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	counts := make(map[models.ReservationStatus]int, len(models.ReservationStatuses))
	byStatus := make(map[models.ReservationStatus][]reservationItem, len(models.ReservationStatuses))
	for _, s := range models.ReservationStatuses {
		counts[s] = 0
		byStatus[s] = []reservationItem{}
	}
	for _, r := range reservations {
		counts[r.Status]++
		byStatus[r.Status] = append(byStatus[r.Status], newReservationItem(r, bc.Site.Location))
	}

	utils.RespondJSON(c, http.StatusOK, "My bookings", gin.H{
		"counts":    counts,
		"by_status": byStatus,
	})
}

// GetMyBooking -> detail satu booking milik user
func (bc *BookingController) GetMyBooking(c *gin.Context) {
	r, ok := bc.ownedReservation(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Booking detail", newReservationItem(*r, bc.Site.Location))
}

// CancelMyBooking -> pembatalan oleh pemilik booking
func (bc *BookingController) CancelMyBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, _ := middlewares.CurrentUserID(c)

	r, err := bc.Status.CancelByOwner(id, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	item := newReservationItem(*r, bc.Site.Location)
	hub.BroadcastBookingStatus(item)
	utils.RespondJSON(c, http.StatusOK, "Booking canceled", gin.H{"ok": true, "id": r.ID, "status": r.Status})
}

// GetMyBookingICal -> file .ics untuk booking milik user
func (bc *BookingController) GetMyBookingICal(c *gin.Context) {
	r, ok := bc.ownedReservation(c)
	if !ok {
		return
	}
	sendICS(c, r.ID, services.BuildReservationICS(*r, bc.Site, bc.Clock.Now()))
}

// GetICalByToken -> file .ics lewat tautan bertanda tangan
func (bc *BookingController) GetICalByToken(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "token is required", map[string][]string{"token": {"token is required"}})
		return
	}
	id, err := bc.Tokens.VerifyICSToken(token)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var r models.Reservation
	err = bc.DB.Preload("Table.Area").First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondServiceError(c, errReservationNotFound)
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	sendICS(c, r.ID, services.BuildReservationICS(r, bc.Site, bc.Clock.Now()))
}
