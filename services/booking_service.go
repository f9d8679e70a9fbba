package services

import (
	"errors"
	"strings"
	"time"

	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateReservationRequest is the raw input of the booking write path.
type CreateReservationRequest struct {
	Date        string `json:"date"`
	Start       string `json:"start"`
	Guests      int    `json:"guests"`
	TableID     *uint  `json:"table_id"`
	AreaID      *uint  `json:"area_id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Comment     string `json:"comment"`
	DurationMin *int   `json:"duration_min"`
}

type BookingService struct {
	db           *gorm.DB
	availability *AvailabilityService
	notifier     Notifier

	// beforeLock runs between an automatic pick and the row lock on the picked table.
	beforeLock func(tx *gorm.DB, tableID uint)
}

func NewBookingService(db *gorm.DB, window OperatingWindow, notifier Notifier) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{
		db:           db,
		availability: NewAvailabilityService(db, window),
		notifier:     notifier,
	}
}

// CreateReservation validates req, resolves a table and persists a pending reservation.
// Table resolution, the overlap check and the insert share one transaction. The chosen
// table row is locked where the dialect supports it and checked for overlaps after the
// lock is held, on both the explicit and the automatic path. The storage trigger
// rejects any overlap that still slips through. user is nil for anonymous bookers.
func (s *BookingService) CreateReservation(req CreateReservationRequest, user *models.User) (*models.Reservation, error) {
	day, err := ParseDay(req.Date)
	if err != nil {
		return nil, WithField(err, "date")
	}
	start, err := ParseClockTime(req.Start)
	if err != nil {
		return nil, WithField(err, "start")
	}
	if req.Guests < 1 {
		return nil, fieldError(CodeInvalidFormat, "guests", "guests must be at least 1")
	}
	window := s.availability.Window()
	visit := window.VisitMinutes
	if req.DurationMin != nil {
		if *req.DurationMin < MinVisitMinutes || *req.DurationMin > MaxVisitMinutes {
			return nil, fieldError(CodeInvalidFormat, "duration_min", "duration must be between 30 and 360 minutes")
		}
		visit = *req.DurationMin
	}
	startAt := window.Combine(day, start)
	endAt := startAt.Add(time.Duration(visit) * time.Minute)

	var reservation *models.Reservation
	err = s.db.Transaction(func(tx *gorm.DB) error {
		availability := s.availability.WithDB(tx)

		table, err := s.resolveTable(tx, availability, req, day, start, visit, startAt, endAt)
		if err != nil {
			return err
		}

		name, phone, email, err := resolveContact(req, user)
		if err != nil {
			return err
		}

		reservation = &models.Reservation{
			TableID:       table.ID,
			DatetimeStart: startAt,
			DatetimeEnd:   endAt,
			Guests:        uint(req.Guests),
			Name:          name,
			Phone:         phone,
			Email:         email,
			Status:        models.StatusPending,
			Comment:       strings.TrimSpace(req.Comment),
		}
		if user != nil {
			reservation.UserID = &user.ID
		}
		if err := tx.Create(reservation).Error; err != nil {
			if isOverlapViolation(err) {
				return fieldError(CodeConflict, "table_id", "table is already booked for this time")
			}
			return err
		}
		reservation.Table = *table
		return nil
	})
	if err != nil {
		return nil, err
	}

	reservation.DatetimeStart = reservation.DatetimeStart.In(window.Location)
	reservation.DatetimeEnd = reservation.DatetimeEnd.In(window.Location)
	utils.InfoLogger.Printf("Reservation %d created: table=%d start=%s guests=%d", reservation.ID, reservation.TableID, reservation.DatetimeStart.Format(time.RFC3339), reservation.Guests)
	s.notifier.NotifyCreated(reservation.ID)
	return reservation, nil
}

func (s *BookingService) resolveTable(tx *gorm.DB, availability *AvailabilityService, req CreateReservationRequest, day time.Time, start ClockTime, visit int, startAt, endAt time.Time) (*models.Table, error) {
	if req.TableID != nil {
		var table models.Table
		err := lockForUpdate(tx).Preload("Area").First(&table, *req.TableID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fieldError(CodeNotFound, "table_id", "table not found")
		}
		if err != nil {
			return nil, err
		}
		if !table.IsActive {
			return nil, fieldError(CodeInactive, "table_id", "table is not available for booking")
		}
		if int(table.Capacity) < req.Guests {
			return nil, fieldError(CodeCapacityExceeded, "guests", "party size exceeds table capacity")
		}
		free, err := availability.TableIsFreeLocked(table.ID, startAt, endAt)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, fieldError(CodeConflict, "table_id", "table is already booked for this time")
		}
		return &table, nil
	}

	// The pick ran before the row lock, so the winner is checked again once it is
	// locked. A table taken in between is skipped and the pick repeated.
	var skipped []uint
	for {
		pick, err := NewTablePicker(availability).PickTableExcluding(day, start, req.Guests, req.AreaID, visit, skipped)
		if err != nil {
			return nil, err
		}
		if pick.Table == nil {
			return nil, fieldError(CodeNoAvailability, NonFieldErrors, "no free table for the requested time")
		}
		if s.beforeLock != nil {
			s.beforeLock(tx, pick.Table.ID)
		}
		var table models.Table
		if err := lockForUpdate(tx).Preload("Area").First(&table, pick.Table.ID).Error; err != nil {
			return nil, err
		}
		free, err := availability.TableIsFreeLocked(table.ID, startAt, endAt)
		if err != nil {
			return nil, err
		}
		if free {
			return &table, nil
		}
		utils.InfoLogger.Printf("Table %d was booked before it could be locked, picking again", table.ID)
		skipped = append(skipped, table.ID)
	}
}

// resolveContact applies the identity rules of anonymous bookers and the profile
// fallbacks of authenticated ones.
func resolveContact(req CreateReservationRequest, user *models.User) (name, phone, email string, err error) {
	name = strings.TrimSpace(req.Name)
	phone = strings.TrimSpace(req.Phone)
	email = strings.TrimSpace(req.Email)

	if user == nil {
		if name == "" {
			return "", "", "", fieldError(CodeMissingName, "name", "name is required")
		}
		if phone == "" && email == "" {
			msg := "phone or email is required"
			return "", "", "", &BookingError{
				Code:    CodeMissingContact,
				Message: msg,
				Fields:  []FieldError{{Field: "phone", Message: msg}, {Field: "email", Message: msg}},
			}
		}
		return name, phone, email, nil
	}

	if name == "" {
		switch {
		case strings.TrimSpace(user.FirstName) != "":
			name = strings.TrimSpace(user.FirstName)
		case user.Email != "":
			name = user.Email
		default:
			name = "Guest"
		}
	}
	if phone == "" {
		phone = user.Phone
	}
	if email == "" {
		email = user.Email
	}
	return name, phone, email, nil
}

// lockForUpdate adds SELECT ... FOR UPDATE on dialects that support row locks.
// SQLite serializes writers at the database level instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
