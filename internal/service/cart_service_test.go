package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memoryCartStore is an in-process CartStore for tests.
type memoryCartStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*model.Cart
}

func newMemoryCartStore() *memoryCartStore {
	return &memoryCartStore{carts: make(map[uuid.UUID]*model.Cart)}
}

func (s *memoryCartStore) Get(_ context.Context, employeeID uuid.UUID) (*model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart, ok := s.carts[employeeID]; ok {
		return cart, nil
	}
	return model.NewCart(), nil
}

func (s *memoryCartStore) Save(_ context.Context, employeeID uuid.UUID, cart *model.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[employeeID] = cart
	return nil
}

func (s *memoryCartStore) Delete(_ context.Context, employeeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, employeeID)
	return nil
}

type cartFixture struct {
	db       *gorm.DB
	svc      CartService
	employee model.Employee
	product  model.Product
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	db := newTestDB(t)

	category := model.Category{
		Name:          "Operativo",
		PurchaseLimit: decimal.NewNullDecimal(decimal.NewFromInt(500)),
		Active:        true,
	}
	require.NoError(t, db.Create(&category).Error)

	employee := model.Employee{
		Name:       "María Pérez",
		Cedula:     "00112345678",
		Active:     true,
		CategoryID: &category.ID,
	}
	require.NoError(t, db.Create(&employee).Error)

	product := model.Product{
		SKU:    "SKU-200",
		Name:   "Café 1lb",
		Price:  decimal.NewFromInt(150),
		Stock:  30,
		Active: true,
	}
	require.NoError(t, db.Create(&product).Error)

	svc := NewCartService(
		newMemoryCartStore(),
		repository.NewProductRepository(db),
		repository.NewEmployeeRepository(db),
	)
	return &cartFixture{db: db, svc: svc, employee: employee, product: product}
}

func TestCartServiceAddItem(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	cart, err := f.svc.AddItem(ctx, f.employee.ID, f.product.ID.String(), 2)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "300.00", cart.Total)
	assert.Equal(t, 2, cart.TotalQuantity)
	require.NotNil(t, cart.Limit)
	assert.Equal(t, "500.00", *cart.Limit)
	assert.False(t, cart.NearLimit)

	// Adding the same product again merges into one line.
	cart, err = f.svc.AddItem(ctx, f.employee.ID, f.product.ID.String(), 1)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.Equal(t, "450.00", cart.Total)
	assert.True(t, cart.NearLimit)
}

func TestCartServiceAddItemValidation(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.employee.ID, f.product.ID.String(), 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.AddItem(ctx, f.employee.ID, "not-a-uuid", 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.AddItem(ctx, f.employee.ID, uuid.NewString(), 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartServiceRejectsInactiveProduct(t *testing.T) {
	f := newCartFixture(t)
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", f.product.ID).Update("active", false).Error)

	_, err := f.svc.AddItem(context.Background(), f.employee.ID, f.product.ID.String(), 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartServiceLimitPreCheck(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.employee.ID, f.product.ID.String(), 3)
	require.NoError(t, err)

	// A fourth unit would push the total to 600 against a 500 ceiling. The
	// refusal must not mutate the saved cart.
	_, err = f.svc.AddItem(ctx, f.employee.ID, f.product.ID.String(), 1)
	assert.ErrorIs(t, err, apperrors.ErrLimitExceeded)

	cart, err := f.svc.GetCart(ctx, f.employee.ID)
	require.NoError(t, err)
	assert.Equal(t, "450.00", cart.Total)
	assert.Equal(t, 3, cart.TotalQuantity)
}

func TestCartServiceSetQuantityAndRemove(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.employee.ID, f.product.ID.String(), 3)
	require.NoError(t, err)

	cart, err := f.svc.SetQuantity(ctx, f.employee.ID, f.product.ID.String(), 1)
	require.NoError(t, err)
	assert.Equal(t, "150.00", cart.Total)

	// Zero removes the line.
	cart, err = f.svc.SetQuantity(ctx, f.employee.ID, f.product.ID.String(), 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	_, err = f.svc.AddItem(ctx, f.employee.ID, f.product.ID.String(), 2)
	require.NoError(t, err)
	cart, err = f.svc.RemoveItem(ctx, f.employee.ID, f.product.ID.String())
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, "0.00", cart.Total)
}

func TestCartServiceClear(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.employee.ID, f.product.ID.String(), 2)
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearCart(ctx, f.employee.ID))

	lines, err := f.svc.CartLines(ctx, f.employee.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
