package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type UpdateStoreConfigRequest struct {
	IsOpen         *bool      `json:"is_open"`
	OpensAt        *time.Time `json:"opens_at"`
	ClosesAt       *time.Time `json:"closes_at"`
	ClearWindow    bool       `json:"clear_window"`
	Season         *string    `json:"season"`
	MaxOrderAmount *string    `json:"max_order_amount"`
	Notes          *string    `json:"notes"`
}

type StoreConfigResponse struct {
	IsOpen         bool       `json:"is_open"`
	OpenNow        bool       `json:"open_now"`
	OpensAt        *time.Time `json:"opens_at"`
	ClosesAt       *time.Time `json:"closes_at"`
	Season         string     `json:"season"`
	MaxOrderAmount string     `json:"max_order_amount"`
	Notes          string     `json:"notes,omitempty"`
}

// --- Interface ---

// StoreService owns the singleton store configuration. EnsureDefault is an
// explicit startup step; request paths never create configuration as a side
// effect of reading it.
type StoreService interface {
	EnsureDefault(ctx context.Context) error
	GetConfig(ctx context.Context) (StoreConfigResponse, error)
	IsOpen(ctx context.Context) (bool, error)
	UpdateConfig(ctx context.Context, actorID string, req UpdateStoreConfigRequest) (StoreConfigResponse, error)
}

type storeService struct {
	storeRepo repository.StoreConfigRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	now       func() time.Time
}

func NewStoreService(
	storeRepo repository.StoreConfigRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) StoreService {
	return &storeService{
		storeRepo: storeRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		now:       time.Now,
	}
}

// --- Implementation ---

func (s *storeService) EnsureDefault(ctx context.Context) error {
	_, err := s.storeRepo.EnsureDefault(ctx)
	return err
}

func (s *storeService) GetConfig(ctx context.Context) (StoreConfigResponse, error) {
	config, err := s.storeRepo.Get(ctx)
	if err != nil {
		return StoreConfigResponse{}, fmt.Errorf("failed to load store configuration: %w", err)
	}
	return s.toResponse(config), nil
}

func (s *storeService) IsOpen(ctx context.Context) (bool, error) {
	config, err := s.storeRepo.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load store configuration: %w", err)
	}
	return config.OpenAt(s.now()), nil
}

func (s *storeService) UpdateConfig(ctx context.Context, actorID string, req UpdateStoreConfigRequest) (StoreConfigResponse, error) {
	config, err := s.storeRepo.Get(ctx)
	if err != nil {
		return StoreConfigResponse{}, fmt.Errorf("failed to load store configuration: %w", err)
	}

	if req.IsOpen != nil {
		config.IsOpen = *req.IsOpen
	}
	if req.ClearWindow {
		config.OpensAt = nil
		config.ClosesAt = nil
	} else {
		if req.OpensAt != nil {
			config.OpensAt = req.OpensAt
		}
		if req.ClosesAt != nil {
			config.ClosesAt = req.ClosesAt
		}
	}
	if config.OpensAt != nil && config.ClosesAt != nil && config.ClosesAt.Before(*config.OpensAt) {
		return StoreConfigResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "closing time must not precede opening time")
	}
	if req.Season != nil {
		config.Season = *req.Season
	}
	if req.MaxOrderAmount != nil {
		amount, parseErr := decimal.NewFromString(*req.MaxOrderAmount)
		if parseErr != nil {
			return StoreConfigResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid max_order_amount")
		}
		if amount.IsNegative() {
			return StoreConfigResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "max_order_amount must not be negative")
		}
		config.MaxOrderAmount = amount
	}
	if req.Notes != nil {
		config.Notes = *req.Notes
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.storeRepo.Update(txCtx, config); updateErr != nil {
			return fmt.Errorf("failed to update store configuration: %w", updateErr)
		}

		details, _ := json.Marshal(req)
		entry := &model.AuditLog{
			UserID:  parseActor(actorID),
			Action:  model.ActionUpdateStoreConfig,
			Details: string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return StoreConfigResponse{}, err
	}

	return s.toResponse(config), nil
}

func (s *storeService) toResponse(config *model.StoreConfig) StoreConfigResponse {
	return StoreConfigResponse{
		IsOpen:         config.IsOpen,
		OpenNow:        config.OpenAt(s.now()),
		OpensAt:        config.OpensAt,
		ClosesAt:       config.ClosesAt,
		Season:         config.Season,
		MaxOrderAmount: config.MaxOrderAmount.StringFixed(2),
		Notes:          config.Notes,
	}
}
