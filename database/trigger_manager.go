package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
)

//go:embed triggers/*.sql
var triggerFiles embed.FS

// ExecuteTriggers installs the reservation overlap triggers for the connected
// dialect. Statements in a trigger file are separated by "//".
func ExecuteTriggers(db *gorm.DB) error {
	dialect := db.Dialector.Name()
	triggerSQL, err := triggerFiles.ReadFile("triggers/" + dialect + ".sql")
	if errors.Is(err, fs.ErrNotExist) {
		utils.InfoLogger.Printf("No triggers for dialect %s", dialect)
		return nil
	}
	if err != nil {
		return err
	}

	executed := 0
	for _, stmt := range strings.Split(string(triggerSQL), "//") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || stmt == ";" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			utils.ErrorLogger.Printf("Error executing trigger: %v\nStatement: %s", err, stmt)
			return fmt.Errorf("install %s triggers: %w", dialect, err)
		}
		executed++
	}
	utils.InfoLogger.Printf("Installed %d %s trigger statements", executed, dialect)
	return nil
}
