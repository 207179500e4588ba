package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jbaezgis/tiendita-sub000/internal/model"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// DefaultCartTTL bounds how long an abandoned cart survives. Every write
// refreshes the window.
const DefaultCartTTL = 24 * time.Hour

// CartStore persists session carts. Carts are ephemeral: they live only for
// the duration of a shopping session and are discarded on checkout or clear.
type CartStore interface {
	Get(ctx context.Context, employeeID uuid.UUID) (*model.Cart, error)
	Save(ctx context.Context, employeeID uuid.UUID, cart *model.Cart) error
	Delete(ctx context.Context, employeeID uuid.UUID) error
}

func cartKey(employeeID uuid.UUID) string {
	return fmt.Sprintf("tiendita:cart:%s", employeeID)
}

type redisCartStore struct {
	rdb *rd.Client
	ttl time.Duration
}

// NewRedisCartStore returns a CartStore backed by a redis key per employee.
func NewRedisCartStore(rdb *rd.Client, ttl time.Duration) CartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &redisCartStore{rdb: rdb, ttl: ttl}
}

// Get returns the employee's cart, or a fresh empty cart when none is stored.
func (s *redisCartStore) Get(ctx context.Context, employeeID uuid.UUID) (*model.Cart, error) {
	raw, err := s.rdb.Get(ctx, cartKey(employeeID)).Bytes()
	if errors.Is(err, rd.Nil) {
		return model.NewCart(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var cart model.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if cart.Lines == nil {
		cart.Lines = make(map[uuid.UUID]*model.CartLine)
	}
	return &cart, nil
}

func (s *redisCartStore) Save(ctx context.Context, employeeID uuid.UUID, cart *model.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.rdb.Set(ctx, cartKey(employeeID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *redisCartStore) Delete(ctx context.Context, employeeID uuid.UUID) error {
	if err := s.rdb.Del(ctx, cartKey(employeeID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
