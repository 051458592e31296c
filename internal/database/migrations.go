package database

import (
	"errors"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/models"
	"github.com/crewdeckhq/crewdeck/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.CompanyMember{},
		&models.JoinRequest{},
		&models.Notification{},
		&models.AuditLog{},
	)
}

// SeedData provisions the initial administrator account when none exists. The
// password comes from CREWDECK_ADMIN_PASSWORD or falls back to a random value
// that must be reset out of band.
func SeedData(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := strings.TrimSpace(os.Getenv("CREWDECK_ADMIN_PASSWORD"))
	if password == "" {
		random, err := crypto.GenerateToken(24)
		if err != nil {
			return err
		}
		password = random
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Username: "admin",
		Email:    "admin@localhost",
		Password: hashed,
		IsActive: true,
	}

	return db.Create(&admin).Error
}
