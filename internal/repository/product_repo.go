package repository

import (
	"context"

	"github.com/jbaezgis/tiendita-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	ProductCategoryID *uuid.UUID
	Search            string // matches name or SKU
	ActiveOnly        bool
	Page              int
	Limit             int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateProductCategory(ctx context.Context, category *model.ProductCategory) error
	ListProductCategories(ctx context.Context) ([]model.ProductCategory, error)
	UpdateProductCategory(ctx context.Context, category *model.ProductCategory) error
	DeleteProductCategory(ctx context.Context, id uuid.UUID) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).
		Preload("ProductCategory").
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	db := GetDB(ctx, r.db)

	build := func(q *gorm.DB) *gorm.DB {
		if filter.ProductCategoryID != nil {
			q = q.Where("product_category_id = ?", *filter.ProductCategoryID)
		}
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			q = q.Where("name LIKE ? OR sku LIKE ?", pattern, pattern)
		}
		if filter.ActiveOnly {
			q = q.Where("active = ?", true)
		}
		return q
	}

	var total int64
	if err := build(db.Model(&model.Product{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var products []model.Product
	if err := build(db.Preload("ProductCategory")).
		Order("name ASC").
		Offset(offset).Limit(filter.Limit).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) CreateProductCategory(ctx context.Context, category *model.ProductCategory) error {
	return GetDB(ctx, r.db).Create(category).Error
}

func (r *productRepository) ListProductCategories(ctx context.Context) ([]model.ProductCategory, error) {
	var categories []model.ProductCategory
	if err := GetDB(ctx, r.db).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *productRepository) UpdateProductCategory(ctx context.Context, category *model.ProductCategory) error {
	return GetDB(ctx, r.db).Save(category).Error
}

func (r *productRepository) DeleteProductCategory(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ProductCategory{}).Error
}
