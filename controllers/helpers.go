package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobooker/middlewares"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/services"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
)

var (
	errReservationNotFound = &services.BookingError{Code: services.CodeNotFound, Message: "reservation not found"}
	errNotOwner            = &services.BookingError{Code: services.CodeForbidden, Message: "reservation belongs to another user"}
)

// statusForCode maps a domain error code to its HTTP status.
func statusForCode(code services.ErrorCode) int {
	switch code {
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeForbidden:
		return http.StatusForbidden
	case services.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

// respondServiceError writes err as a structured error envelope. Errors that do not
// come from the booking core are logged and reported as 500.
func respondServiceError(c *gin.Context, err error) {
	var be *services.BookingError
	if errors.As(err, &be) {
		utils.RespondFieldErrors(c, statusForCode(be.Code), be.Error(), be.FieldMap())
		return
	}
	utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	utils.RespondError(c, http.StatusInternalServerError, errors.New("internal server error"))
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

// currentUser loads the authenticated user, or nil for anonymous requests.
func currentUser(c *gin.Context, db *gorm.DB) (*models.User, error) {
	id, ok := middlewares.CurrentUserID(c)
	if !ok {
		return nil, nil
	}
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type reservationItem struct {
	ID            uint                     `json:"id"`
	Status        models.ReservationStatus `json:"status"`
	StatusLabel   string                   `json:"status_label"`
	DatetimeStart time.Time                `json:"datetime_start"`
	DatetimeEnd   time.Time                `json:"datetime_end"`
	Guests        uint                     `json:"guests"`
	Table         uint                     `json:"table"`
	TableName     string                   `json:"table_name"`
	AreaID        uint                     `json:"area_id"`
	TableArea     string                   `json:"table_area"`
	UserID        *uint                    `json:"user,omitempty"`
	Name          string                   `json:"name"`
	Phone         string                   `json:"phone"`
	Email         string                   `json:"email"`
	Comment       string                   `json:"comment"`
	CreatedAt     time.Time                `json:"created_at"`
}

func newReservationItem(r models.Reservation, loc *time.Location) reservationItem {
	return reservationItem{
		ID:            r.ID,
		Status:        r.Status,
		StatusLabel:   r.Status.Label(),
		DatetimeStart: r.DatetimeStart.In(loc),
		DatetimeEnd:   r.DatetimeEnd.In(loc),
		Guests:        r.Guests,
		Table:         r.TableID,
		TableName:     r.Table.Name,
		AreaID:        r.Table.AreaID,
		TableArea:     r.Table.Area.Name,
		UserID:        r.UserID,
		Name:          r.Name,
		Phone:         r.Phone,
		Email:         r.Email,
		Comment:       r.Comment,
		CreatedAt:     r.CreatedAt.In(loc),
	}
}

func newReservationItems(rs []models.Reservation, loc *time.Location) []reservationItem {
	items := make([]reservationItem, 0, len(rs))
	for _, r := range rs {
		items = append(items, newReservationItem(r, loc))
	}
	return items
}

// sendICS writes body as a calendar file download.
func sendICS(c *gin.Context, reservationID uint, body string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, services.ICSFilename(reservationID)))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}
