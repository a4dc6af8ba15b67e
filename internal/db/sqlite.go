package db

import (
	"github.com/glebarez/sqlite"
	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the SQLite database and runs migrations.
func InitDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Business{},
		&models.ConnectedAccount{},
		&models.LocationConnection{},
		&models.Review{},
		&models.Reply{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
