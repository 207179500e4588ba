package database

import (
	"errors"
	"log"
	"os"

	"github.com/jbaezgis/tiendita-sub000/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin creates the initial admin account when none exists.
func SeedAdmin(db *gorm.DB) error {
	var admin model.User
	err := db.Where("role = ?", model.RoleAdmin).First(&admin).Error
	if err == nil {
		log.Println("Admin account already exists. Seeding skipped.")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	log.Println("Admin account not found. Seeding...")

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123" // development default, change on first login
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin = model.User{
		Username: "admin",
		Email:    "admin@tiendita.local",
		Name:     "Administrador",
		Password: string(hashed),
		Role:     model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("Admin account seeded successfully.")
	return nil
}
