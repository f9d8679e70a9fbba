package models

import "time"

// Area is a seating zone of the restaurant (main hall, terrace, bar...).
type Area struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	Photo       *string   `gorm:"type:varchar(255)" json:"-"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	Order       uint      `gorm:"column:display_order;not null;default:0" json:"order"`
	Tables      []Table   `gorm:"foreignKey:AreaID" json:"-"`
	CreatedAt   time.Time `gorm:"not null" json:"-"`
	UpdatedAt   time.Time `gorm:"not null" json:"-"`
}
