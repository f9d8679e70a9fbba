package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
)

// Notification is the delivery log of one mail sent about a reservation.
type Notification struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ReservationID uint           `gorm:"not null;index" json:"reservation_id"`
	Kind          string         `gorm:"type:varchar(32);not null" json:"kind"`
	Recipient     string         `gorm:"type:varchar(254)" json:"recipient"`
	Status        string         `gorm:"type:varchar(16);not null" json:"status"`
	Error         string         `gorm:"type:text" json:"error,omitempty"`
	Meta          datatypes.JSON `json:"meta,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

// ScheduledReminder is a reminder mail waiting for its fire time.
type ScheduledReminder struct {
	ID            uint      `gorm:"primaryKey"`
	ReservationID uint      `gorm:"not null;index"`
	FireAt        time.Time `gorm:"not null;index:idx_reminder_due,priority:2"`
	Processed     bool      `gorm:"not null;default:false;index:idx_reminder_due,priority:1"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (r *ScheduledReminder) BeforeSave(tx *gorm.DB) error {
	r.FireAt = r.FireAt.UTC()
	return nil
}
