package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/models"
)

// defaultPartnerTags are the category tags the vendor ships for every partner.
var defaultPartnerTags = []string{
	"Income",
	"Groceries",
	"Dining Out",
	"Transportation",
	"Utilities",
	"Entertainment",
	"Health",
	"Travel",
	"Shopping",
	"Transfer",
}

// AutoMigrate applies the schema for all persistent models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Transaction{},
		&models.Budget{},
		&models.Goal{},
		&models.CashflowBill{},
		&models.CashflowIncome{},
		&models.CashflowEvent{},
		&models.Alert{},
		&models.Notification{},
		&models.Tag{},
	)
}

// SeedDefaults inserts the partner-level tag catalogue when missing. It is
// idempotent so start-up can call it unconditionally.
func SeedDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	for _, name := range defaultPartnerTags {
		var count int64
		if err := db.Model(&models.Tag{}).
			Where("user_id IS NULL AND name = ?", name).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count partner tag %q: %w", name, err)
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&models.Tag{Name: name}).Error; err != nil {
			return fmt.Errorf("create partner tag %q: %w", name, err)
		}
	}

	return nil
}
