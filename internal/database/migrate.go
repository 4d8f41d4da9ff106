package database

import (
	"gorm.io/gorm"

	"scipedia/internal/models"
)

// AutoMigrate creates or updates the users and agents tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Agent{},
	)
}
