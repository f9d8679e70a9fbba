package config

import (
	"time"

	"github.com/yeremiapane/restobooker/database"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the configured database with a gorm logger that writes through logrus.
func InitDB(cfg *Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}
	gormLogger := logger.New(utils.InfoLogger, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN, gormLogger)
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Connected to %s database", cfg.DBDriver)
	return db, nil
}
