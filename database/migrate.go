package database

import (
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

// Migrate creates the tables of the persisted session store.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.SessionState{}); err != nil {
		utils.ErrorLogger.Errorf("Failed to AutoMigrate session store: %v", err)
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
