package service

import (
	"context"
	"testing"
	"time"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newStoreService(t *testing.T) (*gorm.DB, StoreService) {
	t.Helper()
	db := newTestDB(t)
	svc := NewStoreService(
		repository.NewStoreConfigRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
	)
	return db, svc
}

func TestEnsureDefaultSeedsClosedConfig(t *testing.T) {
	_, svc := newStoreService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureDefault(ctx))

	config, err := svc.GetConfig(ctx)
	require.NoError(t, err)
	assert.False(t, config.IsOpen)
	assert.False(t, config.OpenNow)
	assert.Equal(t, "10000.00", config.MaxOrderAmount)

	// Idempotent on restart.
	require.NoError(t, svc.EnsureDefault(ctx))
	open, err := svc.IsOpen(ctx)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestUpdateConfigTogglesOpenAndAudits(t *testing.T) {
	db, svc := newStoreService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefault(ctx))

	open := true
	season := "Navidad 2025"
	config, err := svc.UpdateConfig(ctx, "", UpdateStoreConfigRequest{
		IsOpen: &open,
		Season: &season,
	})
	require.NoError(t, err)
	assert.True(t, config.IsOpen)
	assert.True(t, config.OpenNow)
	assert.Equal(t, "Navidad 2025", config.Season)

	isOpen, err := svc.IsOpen(ctx)
	require.NoError(t, err)
	assert.True(t, isOpen)

	var entry model.AuditLog
	require.NoError(t, db.First(&entry, "action = ?", model.ActionUpdateStoreConfig).Error)
}

func TestUpdateConfigValidatesWindowAndAmount(t *testing.T) {
	_, svc := newStoreService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefault(ctx))

	opens := time.Now().Add(2 * time.Hour)
	closes := time.Now().Add(1 * time.Hour)
	_, err := svc.UpdateConfig(ctx, "", UpdateStoreConfigRequest{
		OpensAt:  &opens,
		ClosesAt: &closes,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	bad := "not-a-number"
	_, err = svc.UpdateConfig(ctx, "", UpdateStoreConfigRequest{MaxOrderAmount: &bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	negative := "-5"
	_, err = svc.UpdateConfig(ctx, "", UpdateStoreConfigRequest{MaxOrderAmount: &negative})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	amount := "15000"
	config, err := svc.UpdateConfig(ctx, "", UpdateStoreConfigRequest{MaxOrderAmount: &amount})
	require.NoError(t, err)
	assert.Equal(t, "15000.00", config.MaxOrderAmount)
}

func TestUpdateConfigClearWindow(t *testing.T) {
	_, svc := newStoreService(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefault(ctx))

	open := true
	opens := time.Now().Add(-1 * time.Hour)
	closes := time.Now().Add(1 * time.Hour)
	config, err := svc.UpdateConfig(ctx, "", UpdateStoreConfigRequest{
		IsOpen:   &open,
		OpensAt:  &opens,
		ClosesAt: &closes,
	})
	require.NoError(t, err)
	require.NotNil(t, config.OpensAt)
	require.NotNil(t, config.ClosesAt)

	config, err = svc.UpdateConfig(ctx, "", UpdateStoreConfigRequest{ClearWindow: true})
	require.NoError(t, err)
	assert.Nil(t, config.OpensAt)
	assert.Nil(t, config.ClosesAt)
	assert.True(t, config.OpenNow)
}
