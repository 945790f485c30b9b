package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/models"
)

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{
		&models.Tenant{},
		&models.Account{},
		&models.BootstrapClaim{},
		&models.Invitation{},
		&models.SequenceCounter{},
		&models.Resident{},
		&models.Clearance{},
		&models.BlotterEntry{},
		&models.FinancialTransaction{},
		&models.Folder{},
		&models.Document{},
		&models.ActivityLog{},
		&models.RateCounter{},
	}
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	return db.AutoMigrate(Models()...)
}
