package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jbaezgis/tiendita-sub000/internal/cache"
	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CartLineResponse struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type CartResponse struct {
	Lines         []CartLineResponse `json:"lines"`
	Total         string             `json:"total"`
	TotalQuantity int                `json:"total_quantity"`
	Limit         *string            `json:"limit"` // null = no ceiling
	NearLimit     bool               `json:"near_limit"`
}

// --- Interface ---

// CartService manages the per-employee session cart. Mutations run a
// purchase-limit pre-check so the UI can refuse early; the authoritative check
// happens again at order submission.
type CartService interface {
	GetCart(ctx context.Context, employeeID uuid.UUID) (CartResponse, error)
	AddItem(ctx context.Context, employeeID uuid.UUID, productID string, quantity int) (CartResponse, error)
	SetQuantity(ctx context.Context, employeeID uuid.UUID, productID string, quantity int) (CartResponse, error)
	RemoveItem(ctx context.Context, employeeID uuid.UUID, productID string) (CartResponse, error)
	ClearCart(ctx context.Context, employeeID uuid.UUID) error
	CartLines(ctx context.Context, employeeID uuid.UUID) ([]model.CartLine, error)
}

type cartService struct {
	store        cache.CartStore
	productRepo  repository.ProductRepository
	employeeRepo repository.EmployeeRepository
}

func NewCartService(
	store cache.CartStore,
	productRepo repository.ProductRepository,
	employeeRepo repository.EmployeeRepository,
) CartService {
	return &cartService{
		store:        store,
		productRepo:  productRepo,
		employeeRepo: employeeRepo,
	}
}

// --- Implementation ---

func (s *cartService) GetCart(ctx context.Context, employeeID uuid.UUID) (CartResponse, error) {
	cart, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return CartResponse{}, err
	}
	return s.toResponse(ctx, employeeID, cart)
}

func (s *cartService) AddItem(ctx context.Context, employeeID uuid.UUID, productID string, quantity int) (CartResponse, error) {
	if quantity <= 0 {
		return CartResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "quantity must be positive")
	}

	pid, err := uuid.Parse(productID)
	if err != nil {
		return CartResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product id")
	}

	product, err := s.productRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "product not found")
		}
		return CartResponse{}, fmt.Errorf("failed to load product: %w", err)
	}
	if !product.Active {
		return CartResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "product is not available")
	}

	cart, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return CartResponse{}, err
	}

	cart.Add(product, quantity)

	if err := s.checkLimit(ctx, employeeID, cart); err != nil {
		return CartResponse{}, err
	}
	if err := s.store.Save(ctx, employeeID, cart); err != nil {
		return CartResponse{}, err
	}
	return s.toResponse(ctx, employeeID, cart)
}

func (s *cartService) SetQuantity(ctx context.Context, employeeID uuid.UUID, productID string, quantity int) (CartResponse, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return CartResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product id")
	}

	cart, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return CartResponse{}, err
	}

	cart.SetQuantity(pid, quantity)

	if err := s.checkLimit(ctx, employeeID, cart); err != nil {
		return CartResponse{}, err
	}
	if err := s.store.Save(ctx, employeeID, cart); err != nil {
		return CartResponse{}, err
	}
	return s.toResponse(ctx, employeeID, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, employeeID uuid.UUID, productID string) (CartResponse, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return CartResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product id")
	}

	cart, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return CartResponse{}, err
	}

	cart.Remove(pid)

	if err := s.store.Save(ctx, employeeID, cart); err != nil {
		return CartResponse{}, err
	}
	return s.toResponse(ctx, employeeID, cart)
}

func (s *cartService) ClearCart(ctx context.Context, employeeID uuid.UUID) error {
	return s.store.Delete(ctx, employeeID)
}

// CartLines returns the raw lines for order submission.
func (s *cartService) CartLines(ctx context.Context, employeeID uuid.UUID) ([]model.CartLine, error) {
	cart, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	lines := make([]model.CartLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, *line)
	}
	return lines, nil
}

// checkLimit is the cart-side pre-check of the purchase-limit guard.
func (s *cartService) checkLimit(ctx context.Context, employeeID uuid.UUID, cart *model.Cart) error {
	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrNotFound, "employee not found")
		}
		return fmt.Errorf("failed to load employee: %w", err)
	}
	if !withinLimit(cart.Total(), employee.Category) {
		return apperrors.New(apperrors.ErrLimitExceeded)
	}
	return nil
}

func (s *cartService) toResponse(ctx context.Context, employeeID uuid.UUID, cart *model.Cart) (CartResponse, error) {
	resp := CartResponse{
		Lines:         make([]CartLineResponse, 0, len(cart.Lines)),
		Total:         cart.Total().StringFixed(2),
		TotalQuantity: cart.TotalQuantity(),
	}
	for _, line := range cart.Lines {
		resp.Lines = append(resp.Lines, CartLineResponse{
			ProductID: line.ProductID.String(),
			SKU:       line.SKU,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal.StringFixed(2),
		})
	}

	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		// The cart itself is fine; skip the advisory rather than fail the read.
		return resp, nil
	}
	if employee.Category != nil && employee.Category.PurchaseLimit.Valid {
		limit := employee.Category.PurchaseLimit.Decimal.StringFixed(2)
		resp.Limit = &limit
		resp.NearLimit = nearLimit(cart.Total(), employee.Category)
	}
	return resp, nil
}
