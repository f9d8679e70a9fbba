package database

import (
	"fmt"
	"strings"

	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqliteDefaults make SQLite safe for concurrent writers: foreign keys on, writers
// wait for the lock instead of failing, and every transaction takes the write lock
// at BEGIN so check-then-insert sequences are serialized.
const sqliteDefaults = "_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?" + sqliteDefaults
}

// Open connects to driver ("sqlite" or "mysql"), migrates the schema and installs
// the overlap triggers.
func Open(driver, dsn string, gormLogger logger.Interface) (*gorm.DB, error) {
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		dialector = sqlite.Open(sqliteDSN(dsn))
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := ExecuteTriggers(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Area{},
		&models.Table{},
		&models.Reservation{},
		&models.Notification{},
		&models.ScheduledReminder{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
