package services

import (
	"errors"

	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
)

// StatusService applies guarded lifecycle transitions to reservations. Every
// transition is a conditional UPDATE so two concurrent requests cannot both win.
type StatusService struct {
	db                  *gorm.DB
	notifier            Notifier
	reminderHoursBefore int
}

func NewStatusService(db *gorm.DB, notifier Notifier, reminderHoursBefore int) *StatusService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &StatusService{db: db, notifier: notifier, reminderHoursBefore: reminderHoursBefore}
}

func (s *StatusService) load(id uint) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.Preload("Table.Area").First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(CodeNotFound, "reservation not found")
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// updateStatusGuard moves id to the status to when its current status matches the
// where clause. It returns the number of rows changed.
func (s *StatusService) updateStatusGuard(id uint, to models.ReservationStatus, where string, args ...interface{}) (int64, error) {
	res := s.db.Model(&models.Reservation{}).
		Where("id = ?", id).
		Where(where, args...).
		Update("status", to)
	if res.Error != nil {
		if isOverlapViolation(res.Error) {
			return 0, fieldError(CodeConflict, "status", "table is already booked for this time")
		}
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CancelByOwner cancels userID's own reservation while it is still pending or confirmed.
func (s *StatusService) CancelByOwner(id, userID uint) (*models.Reservation, error) {
	r, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if r.UserID == nil || *r.UserID != userID {
		return nil, newError(CodeForbidden, "reservation belongs to another user")
	}

	affected, err := s.updateStatusGuard(id, models.StatusCanceled, "status IN ?", models.ActiveStatuses)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		current, err := s.load(id)
		if err != nil {
			return nil, err
		}
		if current.Status == models.StatusCanceled {
			return nil, newError(CodeAlreadyCanceled, "reservation is already canceled")
		}
		return nil, newError(CodeNotCancelable, "reservation can no longer be canceled")
	}

	utils.InfoLogger.Printf("Reservation %d canceled by owner %d", id, userID)
	r.Status = models.StatusCanceled
	return r, nil
}

// Confirm moves a reservation to confirmed. Confirming an already confirmed
// reservation is a no-op; changed reports whether this call did the transition.
// Notifications are sent only when changed is true.
func (s *StatusService) Confirm(id uint) (r *models.Reservation, changed bool, err error) {
	r, err = s.load(id)
	if err != nil {
		return nil, false, err
	}
	if r.Status == models.StatusCanceled {
		return nil, false, newError(CodeAlreadyCanceled, "reservation is canceled")
	}

	affected, err := s.updateStatusGuard(id, models.StatusConfirmed, "status NOT IN ?",
		[]models.ReservationStatus{models.StatusCanceled, models.StatusConfirmed})
	if err != nil {
		return nil, false, err
	}
	if affected == 0 {
		current, err := s.load(id)
		if err != nil {
			return nil, false, err
		}
		if current.Status == models.StatusCanceled {
			return nil, false, newError(CodeAlreadyCanceled, "reservation is canceled")
		}
		return current, false, nil
	}

	utils.InfoLogger.Printf("Reservation %d confirmed", id)
	r.Status = models.StatusConfirmed
	s.afterConfirm(id)
	return r, true, nil
}

// CheckIn seats the guest of a pending or confirmed reservation at arrival. Checking
// in an already seated reservation changes nothing and reports changed=false.
func (s *StatusService) CheckIn(id uint) (r *models.Reservation, changed bool, err error) {
	r, err = s.load(id)
	if err != nil {
		return nil, false, err
	}

	affected, err := s.updateStatusGuard(id, models.StatusSeated, "status IN ?", models.ActiveStatuses)
	if err != nil {
		return nil, false, err
	}
	if affected == 0 {
		current, err := s.load(id)
		if err != nil {
			return nil, false, err
		}
		switch current.Status {
		case models.StatusSeated:
			return current, false, nil
		case models.StatusCanceled:
			return nil, false, newError(CodeAlreadyCanceled, "reservation is canceled")
		}
		return nil, false, fieldError(CodeInvalidStatus, "status", "reservation can no longer be checked in")
	}

	utils.InfoLogger.Printf("Reservation %d checked in (was %s)", id, r.Status)
	r.Status = models.StatusSeated
	return r, true, nil
}

// CancelByStaff cancels a reservation regardless of its current status.
func (s *StatusService) CancelByStaff(id uint) (*models.Reservation, error) {
	r, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Reservation{}).Where("id = ?", id).Update("status", models.StatusCanceled).Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Reservation %d canceled by staff (was %s)", id, r.Status)
	r.Status = models.StatusCanceled
	return r, nil
}

// SetStatus sets any known status. Moving into confirmed follows the Confirm
// notification rule: only an actual change notifies.
func (s *StatusService) SetStatus(id uint, code string) (*models.Reservation, error) {
	status, ok := models.ParseReservationStatus(code)
	if !ok {
		return nil, fieldError(CodeInvalidStatus, "status", "unknown status")
	}
	r, err := s.load(id)
	if err != nil {
		return nil, err
	}

	if status == models.StatusConfirmed {
		affected, err := s.updateStatusGuard(id, status, "status <> ?", models.StatusConfirmed)
		if err != nil {
			return nil, err
		}
		r.Status = status
		if affected > 0 {
			utils.InfoLogger.Printf("Reservation %d set to confirmed", id)
			s.afterConfirm(id)
		}
		return r, nil
	}

	if _, err := s.updateStatusGuard(id, status, "1 = 1"); err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Reservation %d status %s -> %s", id, r.Status, status)
	r.Status = status
	return r, nil
}

func (s *StatusService) afterConfirm(id uint) {
	s.notifier.NotifyConfirmed(id)
	if s.reminderHoursBefore > 0 {
		s.notifier.ScheduleReminder(id, s.reminderHoursBefore)
	}
}
