package models

import (
	"time"

	"gorm.io/gorm"
)

// ReservationStatus is the lifecycle state of a booking.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCanceled  ReservationStatus = "canceled"
	StatusSeated    ReservationStatus = "seated"
	StatusCompleted ReservationStatus = "completed"
	StatusNoShow    ReservationStatus = "no_show"
)

// ReservationStatuses lists every status in display order.
var ReservationStatuses = []ReservationStatus{
	StatusPending,
	StatusConfirmed,
	StatusCanceled,
	StatusSeated,
	StatusCompleted,
	StatusNoShow,
}

// ActiveStatuses take part in conflict checks.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

func ParseReservationStatus(code string) (ReservationStatus, bool) {
	switch s := ReservationStatus(code); s {
	case StatusPending, StatusConfirmed, StatusCanceled, StatusSeated, StatusCompleted, StatusNoShow:
		return s, true
	}
	return "", false
}

func (s ReservationStatus) Label() string {
	switch s {
	case StatusPending:
		return "Awaiting confirmation"
	case StatusConfirmed:
		return "Confirmed"
	case StatusCanceled:
		return "Canceled"
	case StatusSeated:
		return "Guest seated"
	case StatusCompleted:
		return "Completed"
	case StatusNoShow:
		return "No show"
	}
	return string(s)
}

// IsActive reports whether the status blocks the table for its interval.
func (s ReservationStatus) IsActive() bool {
	switch s {
	case StatusPending, StatusConfirmed:
		return true
	case StatusCanceled, StatusSeated, StatusCompleted, StatusNoShow:
		return false
	}
	return false
}

type Reservation struct {
	ID            uint              `gorm:"primaryKey"`
	UserID        *uint             `gorm:"index"`
	User          *User             `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	TableID       uint              `gorm:"not null;index:idx_reservation_table_start,priority:1;index:idx_reservation_table_end,priority:1"`
	Table         Table             `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	DatetimeStart time.Time         `gorm:"not null;index:idx_reservation_table_start,priority:2"`
	DatetimeEnd   time.Time         `gorm:"not null;index:idx_reservation_table_end,priority:2"`
	Guests        uint              `gorm:"not null"`
	Name          string            `gorm:"type:varchar(128);not null"`
	Phone         string            `gorm:"type:varchar(32)"`
	Email         string            `gorm:"type:varchar(254)"`
	Status        ReservationStatus `gorm:"type:varchar(16);not null;default:'pending';index"`
	Comment       string            `gorm:"type:text"`
	CreatedAt     time.Time         `gorm:"not null"`
}

// BeforeSave keeps instants in UTC so interval comparisons stay lexical-safe in sqlite.
func (r *Reservation) BeforeSave(tx *gorm.DB) error {
	r.DatetimeStart = r.DatetimeStart.UTC()
	r.DatetimeEnd = r.DatetimeEnd.UTC()
	return nil
}
