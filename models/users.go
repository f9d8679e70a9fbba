package models

import "time"

const (
	RoleGuest = "guest"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

type User struct {
	ID        uint   `gorm:"primaryKey"`
	FirstName string `gorm:"type:varchar(50); not null"`
	LastName  string `gorm:"type:varchar(50)"`
	Email     string `gorm:"type:varchar(255); unique;not null"`
	Phone     string `gorm:"type:varchar(16)"`
	Password  string `gorm:"type:varchar(255); not null"`
	Role      string `gorm:"type:varchar(20); not null;default:'guest'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsStaff reports whether the user may use the manager endpoints.
func IsStaff(role string) bool {
	return role == RoleStaff || role == RoleAdmin
}
