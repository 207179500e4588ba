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

type CategoryRequest struct {
	Name          string `json:"name" binding:"required"`
	SalaryFrom    string `json:"salary_from"`
	SalaryTo      string `json:"salary_to"`
	PurchaseLimit string `json:"purchase_limit"` // empty = no ceiling
	Active        *bool  `json:"active"`
}

type CategoryResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	SalaryFrom    string  `json:"salary_from"`
	SalaryTo      string  `json:"salary_to"`
	PurchaseLimit *string `json:"purchase_limit"`
	Active        bool    `json:"active"`
}

// --- Interface ---

type CategoryService interface {
	CreateCategory(ctx context.Context, actorID string, req CategoryRequest) (CategoryResponse, error)
	ListCategories(ctx context.Context, page, limit int) ([]CategoryResponse, int64, error)
	UpdateCategory(ctx context.Context, actorID string, id string, req CategoryRequest) (CategoryResponse, error)
	DeleteCategory(ctx context.Context, actorID string, id string) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCategoryService(
	categoryRepo repository.CategoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *categoryService) CreateCategory(ctx context.Context, actorID string, req CategoryRequest) (CategoryResponse, error) {
	category, err := categoryFromRequest(req)
	if err != nil {
		return CategoryResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.categoryRepo.Create(txCtx, category); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperrors.Wrap(apperrors.ErrDuplicate, "a category with this name already exists")
			}
			return fmt.Errorf("failed to create category: %w", createErr)
		}
		return s.auditCategory(txCtx, actorID, model.ActionCreateCategory, category, req)
	})
	if err != nil {
		return CategoryResponse{}, err
	}

	return toCategoryResponse(category), nil
}

func (s *categoryService) ListCategories(ctx context.Context, page, limit int) ([]CategoryResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	categories, total, err := s.categoryRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}

	result := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		result = append(result, toCategoryResponse(&categories[i]))
	}
	return result, total, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, actorID string, id string, req CategoryRequest) (CategoryResponse, error) {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return CategoryResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid category id")
	}

	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CategoryResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "category not found")
		}
		return CategoryResponse{}, fmt.Errorf("failed to load category: %w", err)
	}

	updated, err := categoryFromRequest(req)
	if err != nil {
		return CategoryResponse{}, err
	}
	category.Name = updated.Name
	category.SalaryFrom = updated.SalaryFrom
	category.SalaryTo = updated.SalaryTo
	category.PurchaseLimit = updated.PurchaseLimit
	if req.Active != nil {
		category.Active = *req.Active
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.categoryRepo.Update(txCtx, category); updateErr != nil {
			return fmt.Errorf("failed to update category: %w", updateErr)
		}
		return s.auditCategory(txCtx, actorID, model.ActionUpdateCategory, category, req)
	})
	if err != nil {
		return CategoryResponse{}, err
	}

	return toCategoryResponse(category), nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, actorID string, id string) error {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid category id")
	}

	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrNotFound, "category not found")
		}
		return fmt.Errorf("failed to load category: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.categoryRepo.Delete(txCtx, categoryID); deleteErr != nil {
			return fmt.Errorf("failed to delete category: %w", deleteErr)
		}

		entry := &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionDeleteCategory,
			EntityID:   category.ID.String(),
			EntityName: category.Name,
			Details:    `{"deleted": true}`,
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
}

// --- Helpers ---

func categoryFromRequest(req CategoryRequest) (*model.Category, error) {
	category := &model.Category{Name: req.Name, Active: true}

	if req.SalaryFrom != "" {
		v, err := decimal.NewFromString(req.SalaryFrom)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid salary_from")
		}
		category.SalaryFrom = v
	}
	if req.SalaryTo != "" {
		v, err := decimal.NewFromString(req.SalaryTo)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid salary_to")
		}
		category.SalaryTo = v
	}
	if req.PurchaseLimit != "" {
		v, err := decimal.NewFromString(req.PurchaseLimit)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid purchase_limit")
		}
		if v.IsNegative() {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "purchase_limit must not be negative")
		}
		category.PurchaseLimit = decimal.NewNullDecimal(v)
	}
	return category, nil
}

func (s *categoryService) auditCategory(ctx context.Context, actorID, action string, category *model.Category, req CategoryRequest) error {
	details, _ := json.Marshal(req)
	entry := &model.AuditLog{
		UserID:     parseActor(actorID),
		Action:     action,
		EntityID:   category.ID.String(),
		EntityName: category.Name,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toCategoryResponse(c *model.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:         c.ID.String(),
		Name:       c.Name,
		SalaryFrom: c.SalaryFrom.StringFixed(2),
		SalaryTo:   c.SalaryTo.StringFixed(2),
		Active:     c.Active,
	}
	if c.PurchaseLimit.Valid {
		limit := c.PurchaseLimit.Decimal.StringFixed(2)
		resp.PurchaseLimit = &limit
	}
	return resp
}
