package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jbaezgis/tiendita-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	EmployeeID *uuid.UUID
	Status     string
	Page       int
	Limit      int
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	CreateItem(ctx context.Context, item *model.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	HasOutstanding(ctx context.Context, employeeID uuid.UUID) (bool, error)
	NextOrderNumber(ctx context.Context, now time.Time) (string, error)
	Transition(ctx context.Context, id uuid.UUID, fromStatuses []string, updates map[string]interface{}) (int64, error)
	UpdateItems(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) CreateItem(ctx context.Context, item *model.OrderItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Items.Product").
		Preload("Employee").
		Preload("Category").
		Preload("Approver").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.Order{})
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	fetch := db.Preload("Items").Preload("Employee").Preload("Category")
	if filter.EmployeeID != nil {
		fetch = fetch.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.Status != "" {
		fetch = fetch.Where("status = ?", filter.Status)
	}

	var orders []model.Order
	if err := fetch.
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// HasOutstanding reports whether the employee already holds an order in
// PENDING or APPROVED. The partial unique index is the authoritative guard;
// this pre-check exists to fail early with a clean error.
func (r *orderRepository) HasOutstanding(ctx context.Context, employeeID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("employee_id = ? AND status IN ?", employeeID,
			[]string{model.OrderStatusPending, model.OrderStatusApproved}).
		Count(&count).Error
	return count > 0, err
}

// NextOrderNumber bumps the per-year sequence row with an atomic UPDATE and
// formats ORD<year><seq:4>. Concurrent creations serialize on the row lock the
// UPDATE takes, so two orders in the same instant cannot observe the same
// sequence value. Must run inside the creation transaction.
func (r *orderRepository) NextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	db := GetDB(ctx, r.db)
	year := now.Year()

	res := db.Model(&model.OrderSequence{}).
		Where("year = ?", year).
		UpdateColumn("last_seq", gorm.Expr("last_seq + 1"))
	if res.Error != nil {
		return "", res.Error
	}

	if res.RowsAffected == 0 {
		// First order of the year. A concurrent creator may win this insert.
		seq := model.OrderSequence{Year: year, LastSeq: 1}
		err := db.Create(&seq).Error
		if err == nil {
			return fmt.Sprintf("ORD%d%04d", year, 1), nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", err
		}
		res = db.Model(&model.OrderSequence{}).
			Where("year = ?", year).
			UpdateColumn("last_seq", gorm.Expr("last_seq + 1"))
		if res.Error != nil {
			return "", res.Error
		}
	}

	var seq model.OrderSequence
	if err := db.First(&seq, "year = ?", year).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD%d%04d", year, seq.LastSeq), nil
}

// Transition applies a guarded status update: the row only changes when its
// current status is one of fromStatuses. Returns the number of rows updated,
// zero means the precondition failed and nothing was mutated.
func (r *orderRepository) Transition(ctx context.Context, id uuid.UUID, fromStatuses []string, updates map[string]interface{}) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *orderRepository) UpdateItems(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.OrderItem{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}
