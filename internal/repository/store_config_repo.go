package repository

import (
	"context"
	"errors"

	"github.com/jbaezgis/tiendita-sub000/internal/model"

	"gorm.io/gorm"
)

// StoreConfigRepository manages the singleton store configuration row.
type StoreConfigRepository interface {
	Get(ctx context.Context) (*model.StoreConfig, error)
	EnsureDefault(ctx context.Context) (*model.StoreConfig, error)
	Update(ctx context.Context, config *model.StoreConfig) error
}

type storeConfigRepository struct {
	db *gorm.DB
}

func NewStoreConfigRepository(db *gorm.DB) StoreConfigRepository {
	return &storeConfigRepository{db: db}
}

func (r *storeConfigRepository) Get(ctx context.Context) (*model.StoreConfig, error) {
	var config model.StoreConfig
	if err := GetDB(ctx, r.db).Order("id ASC").First(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

// EnsureDefault creates the closed default configuration if no row exists yet.
// Called once at startup so that no request path ever has to lazily create it.
func (r *storeConfigRepository) EnsureDefault(ctx context.Context) (*model.StoreConfig, error) {
	config, err := r.Get(ctx)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	def := model.StoreConfig{
		IsOpen:         false,
		MaxOrderAmount: model.DefaultMaxOrderAmount,
	}
	if createErr := GetDB(ctx, r.db).Create(&def).Error; createErr != nil {
		// A concurrent boot may have created it first.
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return r.Get(ctx)
		}
		return nil, createErr
	}
	return &def, nil
}

func (r *storeConfigRepository) Update(ctx context.Context, config *model.StoreConfig) error {
	return GetDB(ctx, r.db).Save(config).Error
}
