package database

import (
	"log"

	"github.com/jbaezgis/tiendita-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// TranslateError lets callers match gorm.ErrDuplicatedKey regardless of driver.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Category{},
		&model.Employee{},
		&model.ProductCategory{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderSequence{},
		&model.StoreConfig{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
