package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMaxOrderAmount is the per-order cap seeded when no configuration
// exists yet (RD$10,000).
var DefaultMaxOrderAmount = decimal.NewFromInt(10000)

// StoreConfig is the singleton store configuration row. It is created once at
// startup with safe defaults (closed) and only ever updated afterwards.
type StoreConfig struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	IsOpen         bool            `gorm:"default:false" json:"is_open"`
	OpensAt        *time.Time      `json:"opens_at"`
	ClosesAt       *time.Time      `json:"closes_at"`
	Season         string          `gorm:"type:varchar(100)" json:"season"`
	MaxOrderAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"max_order_amount"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OpenAt reports whether the store accepts orders at the given instant.
// The flag gates everything; the window only applies when both ends are set,
// and is inclusive on both ends.
func (s *StoreConfig) OpenAt(t time.Time) bool {
	if !s.IsOpen {
		return false
	}
	if s.OpensAt != nil && s.ClosesAt != nil {
		return !t.Before(*s.OpensAt) && !t.After(*s.ClosesAt)
	}
	return true
}
