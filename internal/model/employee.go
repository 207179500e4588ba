package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category is a salary-bracket spending group. The salary range is informational
// only. Humans assign categories by hand; the purchase limit is what gets enforced.
type Category struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string              `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	SalaryFrom    decimal.Decimal     `gorm:"type:decimal(12,2);default:0" json:"salary_from"`
	SalaryTo      decimal.Decimal     `gorm:"type:decimal(12,2);default:0" json:"salary_to"`
	PurchaseLimit decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"purchase_limit"` // null = no ceiling
	Active        bool                `gorm:"default:true" json:"active"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Employee is a staff member eligible to place purchase orders, linked 1:1 to a
// login account which is kept in sync from the employee record.
type Employee struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	Cedula     string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"cedula"`
	Email      string         `gorm:"type:varchar(255)" json:"email"`
	Department string         `gorm:"type:varchar(100)" json:"department"`
	Active     bool           `gorm:"default:true" json:"active"`
	CategoryID *uuid.UUID     `gorm:"type:uuid;index" json:"category_id"`
	Category   *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	UserID     *uuid.UUID     `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
