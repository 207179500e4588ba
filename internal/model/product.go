package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductCategory groups products for catalog browsing. Not to be confused with
// the spending Category assigned to employees.
type ProductCategory struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *ProductCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Product represents an item available in the store catalog
type Product struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	SKU               string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name              string           `gorm:"type:varchar(255);not null" json:"name"`
	Description       string           `gorm:"type:text" json:"description"`
	Price             decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock             int              `gorm:"type:int;default:0;not null" json:"stock"`
	ImageURL          string           `gorm:"type:varchar(500)" json:"image_url"`
	Active            bool             `gorm:"default:true" json:"active"`
	ProductCategoryID *uuid.UUID       `gorm:"type:uuid;index" json:"product_category_id"`
	ProductCategory   *ProductCategory `gorm:"foreignKey:ProductCategoryID" json:"product_category,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
