package config

import (
	"fmt"

	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin creates the first admin account from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD when no admin exists yet. It returns true when a user was created.
func SeedAdmin(db *gorm.DB, cfg *Config) (bool, error) {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return false, nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{
		FirstName: "Admin",
		Email:     cfg.SeedAdminEmail,
		Password:  string(hash),
		Role:      models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	utils.InfoLogger.Printf("Default admin %s seeded", admin.Email)
	return true, nil
}
