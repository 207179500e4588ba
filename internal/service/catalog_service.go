package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CatalogFilter struct {
	ProductCategoryID string
	Search            string
	Page              int
	Limit             int
}

type ProductRequest struct {
	SKU               string `json:"sku" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	Price             string `json:"price" binding:"required"`
	Stock             int    `json:"stock"`
	ImageURL          string `json:"image_url"`
	Active            *bool  `json:"active"`
	ProductCategoryID string `json:"product_category_id"`
}

type ProductResponse struct {
	ID                  string  `json:"id"`
	SKU                 string  `json:"sku"`
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Price               string  `json:"price"`
	Stock               int     `json:"stock"`
	ImageURL            string  `json:"image_url,omitempty"`
	Active              bool    `json:"active"`
	ProductCategoryID   *string `json:"product_category_id"`
	ProductCategoryName string  `json:"product_category_name,omitempty"`
}

type ProductCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// --- Interface ---

// CatalogService serves the employee-facing product browse (active products
// only) and the admin product/category CRUD.
type CatalogService interface {
	BrowseProducts(ctx context.Context, filter CatalogFilter) ([]ProductResponse, int64, error)
	ListAllProducts(ctx context.Context, filter CatalogFilter) ([]ProductResponse, int64, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	CreateProduct(ctx context.Context, actorID string, req ProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, actorID string, id string, req ProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, actorID string, id string) error

	ListProductCategories(ctx context.Context) ([]model.ProductCategory, error)
	CreateProductCategory(ctx context.Context, actorID string, req ProductCategoryRequest) (*model.ProductCategory, error)
	DeleteProductCategory(ctx context.Context, actorID string, id string) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// --- Implementation ---

func (s *catalogService) BrowseProducts(ctx context.Context, filter CatalogFilter) ([]ProductResponse, int64, error) {
	return s.listProducts(ctx, filter, true)
}

func (s *catalogService) ListAllProducts(ctx context.Context, filter CatalogFilter) ([]ProductResponse, int64, error) {
	return s.listProducts(ctx, filter, false)
}

func (s *catalogService) listProducts(ctx context.Context, filter CatalogFilter, activeOnly bool) ([]ProductResponse, int64, error) {
	repoFilter := repository.ProductFilter{
		Search:     filter.Search,
		ActiveOnly: activeOnly,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.ProductCategoryID != "" {
		categoryID, err := uuid.Parse(filter.ProductCategoryID)
		if err != nil {
			return nil, 0, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product category id")
		}
		repoFilter.ProductCategoryID = &categoryID
	}

	products, total, err := s.productRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	result := make([]ProductResponse, 0, len(products))
	for i := range products {
		result = append(result, toProductResponse(&products[i]))
	}
	return result, total, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product id")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "product not found")
		}
		return ProductResponse{}, fmt.Errorf("failed to load product: %w", err)
	}
	return toProductResponse(product), nil
}

func (s *catalogService) CreateProduct(ctx context.Context, actorID string, req ProductRequest) (ProductResponse, error) {
	product, err := s.productFromRequest(ctx, req)
	if err != nil {
		return ProductResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.productRepo.Create(txCtx, product); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperrors.Wrap(apperrors.ErrDuplicate, "a product with this SKU already exists")
			}
			return fmt.Errorf("failed to create product: %w", createErr)
		}
		return s.auditProduct(txCtx, actorID, model.ActionCreateProduct, product, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actorID string, id string, req ProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product id")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "product not found")
		}
		return ProductResponse{}, fmt.Errorf("failed to load product: %w", err)
	}

	updated, err := s.productFromRequest(ctx, req)
	if err != nil {
		return ProductResponse{}, err
	}
	product.SKU = updated.SKU
	product.Name = updated.Name
	product.Description = updated.Description
	product.Price = updated.Price
	product.Stock = updated.Stock
	product.ImageURL = updated.ImageURL
	product.ProductCategoryID = updated.ProductCategoryID
	if req.Active != nil {
		product.Active = *req.Active
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.productRepo.Update(txCtx, product); updateErr != nil {
			return fmt.Errorf("failed to update product: %w", updateErr)
		}
		return s.auditProduct(txCtx, actorID, model.ActionUpdateProduct, product, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, actorID string, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product id")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrNotFound, "product not found")
		}
		return fmt.Errorf("failed to load product: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.productRepo.Delete(txCtx, productID); deleteErr != nil {
			return fmt.Errorf("failed to delete product: %w", deleteErr)
		}

		entry := &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionDeleteProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    `{"deleted": true}`,
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
}

func (s *catalogService) ListProductCategories(ctx context.Context) ([]model.ProductCategory, error) {
	return s.productRepo.ListProductCategories(ctx)
}

func (s *catalogService) CreateProductCategory(ctx context.Context, actorID string, req ProductCategoryRequest) (*model.ProductCategory, error) {
	category := &model.ProductCategory{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.productRepo.CreateProductCategory(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Wrap(apperrors.ErrDuplicate, "a product category with this name already exists")
		}
		return nil, fmt.Errorf("failed to create product category: %w", err)
	}
	return category, nil
}

func (s *catalogService) DeleteProductCategory(ctx context.Context, actorID string, id string) error {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product category id")
	}
	return s.productRepo.DeleteProductCategory(ctx, categoryID)
}

// --- Helpers ---

func (s *catalogService) productFromRequest(ctx context.Context, req ProductRequest) (*model.Product, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid price")
	}
	if price.IsNegative() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "price must not be negative")
	}

	product := &model.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		Active:      true,
	}
	if req.ProductCategoryID != "" {
		categoryID, parseErr := uuid.Parse(req.ProductCategoryID)
		if parseErr != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product category id")
		}
		product.ProductCategoryID = &categoryID
	}
	return product, nil
}

func (s *catalogService) auditProduct(ctx context.Context, actorID, action string, product *model.Product, req ProductRequest) error {
	details, _ := json.Marshal(req)
	entry := &model.AuditLog{
		UserID:     parseActor(actorID),
		Action:     action,
		EntityID:   product.ID.String(),
		EntityName: product.Name,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toProductResponse(p *model.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID.String(),
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Active:      p.Active,
	}
	if p.ProductCategoryID != nil {
		id := p.ProductCategoryID.String()
		resp.ProductCategoryID = &id
	}
	if p.ProductCategory != nil {
		resp.ProductCategoryName = p.ProductCategory.Name
	}
	return resp
}
