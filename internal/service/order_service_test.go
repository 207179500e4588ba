package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
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
	))
	return db
}

type orderFixture struct {
	db       *gorm.DB
	svc      *orderService
	employee model.Employee
	category model.Category
	product  model.Product
	config   model.StoreConfig
}

// newOrderFixture seeds an open store, a spending category with a 500 ceiling
// and one active employee in it.
func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := newTestDB(t)

	category := model.Category{
		Name:          "Operativo",
		SalaryFrom:    decimal.NewFromInt(10000),
		SalaryTo:      decimal.NewFromInt(30000),
		PurchaseLimit: decimal.NewNullDecimal(decimal.NewFromInt(500)),
		Active:        true,
	}
	require.NoError(t, db.Create(&category).Error)

	employee := model.Employee{
		Name:       "María Pérez",
		Cedula:     "00112345678",
		Email:      "maria@tiendita.local",
		Active:     true,
		CategoryID: &category.ID,
	}
	require.NoError(t, db.Create(&employee).Error)

	config := model.StoreConfig{
		IsOpen:         true,
		MaxOrderAmount: model.DefaultMaxOrderAmount,
	}
	require.NoError(t, db.Create(&config).Error)

	product := model.Product{
		SKU:    "SKU-100",
		Name:   "Aceite 1L",
		Price:  decimal.NewFromInt(100),
		Stock:  50,
		Active: true,
	}
	require.NoError(t, db.Create(&product).Error)

	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewEmployeeRepository(db),
		repository.NewStoreConfigRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		nil,
	).(*orderService)

	return &orderFixture{db: db, svc: svc, employee: employee, category: category, product: product, config: config}
}

func (f *orderFixture) lines(unitPrice string, quantity int) []model.CartLine {
	price := decimal.RequireFromString(unitPrice)
	return []model.CartLine{{
		ProductID: f.product.ID,
		SKU:       f.product.SKU,
		Name:      f.product.Name,
		Quantity:  quantity,
		UnitPrice: price,
		Subtotal:  price.Mul(decimal.NewFromInt(int64(quantity))),
	}}
}

func (f *orderFixture) newEmployee(t *testing.T, cedula string) model.Employee {
	t.Helper()
	employee := model.Employee{
		Name:       "Empleado " + cedula,
		Cedula:     cedula,
		Active:     true,
		CategoryID: &f.category.ID,
	}
	require.NoError(t, f.db.Create(&employee).Error)
	return employee
}

func TestCreateOrderAssignsSequentialNumbers(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	year := time.Now().Year()

	first, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ORD%d0001", year), first.OrderNumber)
	assert.Equal(t, model.OrderStatusPending, first.Status)
	assert.Equal(t, model.PriorityMedium, first.Priority)

	second, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		EmployeeID: f.newEmployee(t, "00187654321").ID,
		Lines:      f.lines("100.00", 2),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ORD%d0002", year), second.OrderNumber)
}

func TestCreateOrderTotalsMatchLineSum(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("125.50", 3),
	})
	require.NoError(t, err)

	assert.Equal(t, "376.50", order.Subtotal)
	assert.Equal(t, "376.50", order.Total)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "376.50", order.Items[0].Subtotal)
	assert.Equal(t, 3, order.Items[0].Quantity)
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{EmployeeID: f.employee.ID})
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
}

func TestCreateOrderRejectsWhenStoreClosed(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.db.Model(&model.StoreConfig{}).Where("id = ?", f.config.ID).Update("is_open", false).Error)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 1),
	})
	assert.ErrorIs(t, err, apperrors.ErrStoreClosed)
}

func TestCreateOrderRespectsOrderingWindow(t *testing.T) {
	f := newOrderFixture(t)

	opens := time.Now().Add(-1 * time.Hour)
	closes := time.Now().Add(-30 * time.Minute)
	require.NoError(t, f.db.Model(&model.StoreConfig{}).Where("id = ?", f.config.ID).
		Updates(map[string]interface{}{"opens_at": opens, "closes_at": closes}).Error)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 1),
	})
	assert.ErrorIs(t, err, apperrors.ErrStoreClosed)
}

func TestCreateOrderEnforcesPurchaseLimit(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	// 520 against a 500 ceiling must be refused with nothing persisted.
	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("130.00", 4),
	})
	assert.ErrorIs(t, err, apperrors.ErrLimitExceeded)

	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)

	// 450 passes.
	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("150.00", 3),
	})
	require.NoError(t, err)
	assert.Equal(t, "450.00", order.Total)
}

func TestCreateOrderAllowsAnyTotalWithoutCeiling(t *testing.T) {
	f := newOrderFixture(t)
	employee := model.Employee{Name: "Sin Categoría", Cedula: "00199999999", Active: true}
	require.NoError(t, f.db.Create(&employee).Error)

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		EmployeeID: employee.ID,
		Lines:      f.lines("900.00", 5),
	})
	require.NoError(t, err)
	assert.Equal(t, "4500.00", order.Total)
}

func TestCreateOrderEnforcesMaxOrderAmount(t *testing.T) {
	f := newOrderFixture(t)
	employee := model.Employee{Name: "Sin Categoría", Cedula: "00188888888", Active: true}
	require.NoError(t, f.db.Create(&employee).Error)

	// DefaultMaxOrderAmount is 10000; 10100 must be refused even with no ceiling.
	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		EmployeeID: employee.ID,
		Lines:      f.lines("101.00", 100),
	})
	assert.ErrorIs(t, err, apperrors.ErrMaxAmountExceeded)
}

func TestCreateOrderRejectsSecondOutstanding(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 1),
	})
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 1),
	})
	assert.ErrorIs(t, err, apperrors.ErrOutstandingOrderExists)
}

func TestCreateOrderAllowedAfterRejection(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	approver := seedUser(t, f.db, model.RoleSupervisor)

	first, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 1),
	})
	require.NoError(t, err)

	_, err = f.svc.RejectOrder(ctx, first.ID, approver.ID.String(), "Producto descontinuado")
	require.NoError(t, err)

	// A terminal order no longer blocks a new one.
	_, err = f.svc.CreateOrder(ctx, CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 2),
	})
	require.NoError(t, err)
}

func TestCreateOrderRejectsInactiveEmployee(t *testing.T) {
	f := newOrderFixture(t)
	require.NoError(t, f.db.Model(&model.Employee{}).Where("id = ?", f.employee.ID).Update("active", false).Error)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 1),
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCreateOrderRejectsInvalidPriority(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 1),
		Priority:   "WHENEVER",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func seedUser(t *testing.T, db *gorm.DB, role string) model.User {
	t.Helper()
	user := model.User{
		Username: "user-" + uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@tiendita.local",
		Name:     "Usuario Prueba",
		Cedula:   uuid.NewString()[:11],
		Password: "x",
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func (f *orderFixture) createPending(t *testing.T) OrderResponse {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		EmployeeID: f.employee.ID,
		Lines:      f.lines("100.00", 2),
	})
	require.NoError(t, err)
	return order
}

func TestApproveOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	approver := seedUser(t, f.db, model.RoleSupervisor)
	pending := f.createPending(t)

	approved, err := f.svc.ApproveOrder(ctx, pending.ID, approver.ID.String())
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, approver.ID.String(), *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	// Items follow in lockstep with full approved quantity.
	require.Len(t, approved.Items, 1)
	assert.Equal(t, model.OrderStatusApproved, approved.Items[0].Status)
	require.NotNil(t, approved.Items[0].ApprovedQuantity)
	assert.Equal(t, 2, *approved.Items[0].ApprovedQuantity)
}

func TestApproveOrderIdempotentFailure(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	approver := seedUser(t, f.db, model.RoleSupervisor)
	pending := f.createPending(t)

	_, err := f.svc.ApproveOrder(ctx, pending.ID, approver.ID.String())
	require.NoError(t, err)

	// A second approve must fail and change nothing.
	_, err = f.svc.ApproveOrder(ctx, pending.ID, approver.ID.String())
	assert.ErrorIs(t, err, apperrors.ErrNotPending)

	reloaded, err := f.svc.GetOrder(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusApproved, reloaded.Status)
}

func TestRejectOrderRequiresReason(t *testing.T) {
	f := newOrderFixture(t)
	approver := seedUser(t, f.db, model.RoleSupervisor)
	pending := f.createPending(t)

	_, err := f.svc.RejectOrder(context.Background(), pending.ID, approver.ID.String(), "corto")
	assert.ErrorIs(t, err, apperrors.ErrReasonTooShort)

	// Whitespace padding does not rescue a short reason.
	_, err = f.svc.RejectOrder(context.Background(), pending.ID, approver.ID.String(), "   corto   ")
	assert.ErrorIs(t, err, apperrors.ErrReasonTooShort)
}

func TestRejectOrderStoresReasonAndApprover(t *testing.T) {
	f := newOrderFixture(t)
	approver := seedUser(t, f.db, model.RoleSupervisor)
	pending := f.createPending(t)

	rejected, err := f.svc.RejectOrder(context.Background(), pending.ID, approver.ID.String(), "Producto descontinuado")
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusRejected, rejected.Status)
	assert.Equal(t, "Producto descontinuado", rejected.RejectionReason)
	require.NotNil(t, rejected.ApprovedBy)
	assert.Equal(t, approver.ID.String(), *rejected.ApprovedBy)
	require.Len(t, rejected.Items, 1)
	assert.Equal(t, model.OrderStatusRejected, rejected.Items[0].Status)
}

func TestDeliverOrderRequiresApproval(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	actor := seedUser(t, f.db, model.RoleSupervisor)
	pending := f.createPending(t)

	_, err := f.svc.DeliverOrder(ctx, pending.ID, actor.ID.String())
	assert.ErrorIs(t, err, apperrors.ErrNotApproved)

	_, err = f.svc.ApproveOrder(ctx, pending.ID, actor.ID.String())
	require.NoError(t, err)

	delivered, err := f.svc.DeliverOrder(ctx, pending.ID, actor.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, delivered.Status)
	require.Len(t, delivered.Items, 1)
	assert.Equal(t, model.OrderStatusDelivered, delivered.Items[0].Status)
	assert.Equal(t, 2, delivered.Items[0].DeliveredQuantity)
}

func TestCancelOrderOwnerOnly(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	pending := f.createPending(t)

	other := f.newEmployee(t, "00177777777")
	_, err := f.svc.CancelOrder(ctx, pending.ID, other.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	cancelled, err := f.svc.CancelOrder(ctx, pending.ID, f.employee.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)

	// Cancelled is terminal.
	approver := seedUser(t, f.db, model.RoleSupervisor)
	_, err = f.svc.ApproveOrder(ctx, pending.ID, approver.ID.String())
	assert.ErrorIs(t, err, apperrors.ErrNotPending)
}

func TestTransitionsWriteAuditTrail(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	approver := seedUser(t, f.db, model.RoleSupervisor)
	pending := f.createPending(t)

	_, err := f.svc.ApproveOrder(ctx, pending.ID, approver.ID.String())
	require.NoError(t, err)

	var entries []model.AuditLog
	require.NoError(t, f.db.Order("created_at asc").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionCreateOrder, entries[0].Action)
	assert.Equal(t, model.ActionApproveOrder, entries[1].Action)
	require.NotNil(t, entries[1].UserID)
	assert.Equal(t, approver.ID, *entries[1].UserID)
}

func TestPurchaseLimitFor(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	// Well under the ceiling: no advisory.
	info, err := f.svc.PurchaseLimitFor(ctx, f.employee.ID, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NotNil(t, info.Limit)
	assert.Equal(t, "500.00", *info.Limit)
	assert.Equal(t, "400.00", *info.Headroom)
	assert.False(t, info.NearLimit)

	// Headroom of 50 on a 500 ceiling is exactly the 10% threshold.
	info, err = f.svc.PurchaseLimitFor(ctx, f.employee.ID, decimal.NewFromInt(450))
	require.NoError(t, err)
	assert.True(t, info.NearLimit)

	// No category means no ceiling.
	loose := model.Employee{Name: "Sin Categoría", Cedula: "00166666666", Active: true}
	require.NoError(t, f.db.Create(&loose).Error)
	info, err = f.svc.PurchaseLimitFor(ctx, loose.ID, decimal.NewFromInt(99999))
	require.NoError(t, err)
	assert.Nil(t, info.Limit)
	assert.False(t, info.NearLimit)
}
