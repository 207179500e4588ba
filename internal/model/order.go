package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus constants
const (
	OrderStatusPending   = "PENDING"
	OrderStatusApproved  = "APPROVED"
	OrderStatusRejected  = "REJECTED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// OrderPriority constants
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Order represents one purchase request by one employee.
//
// The partial unique index on employee_id enforces the single-outstanding-order
// rule at the database level: an employee can hold at most one order in
// PENDING or APPROVED at a time.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"order_number"` // ORD<year><seq:4>
	EmployeeID      uuid.UUID       `gorm:"type:uuid;not null;index:uniq_employee_outstanding,unique,where:status = 'PENDING' OR status = 'APPROVED'" json:"employee_id"`
	Employee        *Employee       `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	CategoryID      *uuid.UUID      `gorm:"type:uuid" json:"category_id"` // snapshot of the employee's category at creation
	Category        *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	OrderDate       time.Time       `gorm:"not null" json:"order_date"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"` // == subtotal, no tax/discount
	Status          string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Priority        string          `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	Notes           string          `gorm:"type:text" json:"notes"`
	RejectionReason string          `gorm:"type:text" json:"rejection_reason"`
	ApprovedBy      *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	Approver        *User           `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	CreatedBy       *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	UpdatedBy       *uuid.UUID      `gorm:"type:uuid" json:"updated_by"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem represents one product line within an Order. The unit price is
// snapshotted at add-to-cart time and immutable once the line exists.
type OrderItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product           *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity          int             `gorm:"type:int;not null" json:"quantity"`
	ApprovedQuantity  *int            `gorm:"type:int" json:"approved_quantity"`
	DeliveredQuantity int             `gorm:"type:int;default:0;not null" json:"delivered_quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"` // price × quantity at creation
	Status            string          `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// OrderSequence is the per-year counter behind order numbers. The row is
// incremented with an atomic UPDATE inside the order-creation transaction, so
// concurrent creations serialize on the row lock instead of racing a SELECT.
type OrderSequence struct {
	Year    int `gorm:"primaryKey" json:"year"`
	LastSeq int `gorm:"not null;default:0" json:"last_seq"`
}
