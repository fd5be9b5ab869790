package menu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/tavola-pos/tavola/internal/orders"
)

const menuCacheKey = "tavola:menu:active"

// Store is the persistence surface the service needs.
type Store interface {
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, activeOnly bool) ([]Product, error)
	Create(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, p Product) error
}

// Service serves the menu. The active menu is cached in Redis because every
// guest terminal polls it; cache misses collapse through singleflight so a
// cold cache costs one database read, not one per terminal.
type Service struct {
	store  Store
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a menu service. cache may be nil, in which case every
// read goes to the database.
func NewService(store Store, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, ttl: ttl, logger: logger}
}

// Menu returns the active products in display order.
func (s *Service) Menu(ctx context.Context) ([]Product, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, menuCacheKey).Bytes()
		if err == nil {
			var products []Product
			if err := json.Unmarshal(raw, &products); err == nil {
				return products, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("menu cache read", slog.Any("error", err))
		}
	}

	v, err, _ := s.group.Do(menuCacheKey, func() (any, error) {
		products, err := s.store.List(ctx, true)
		if err != nil {
			return nil, err
		}
		s.fillCache(ctx, products)
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Product), nil
}

func (s *Service) fillCache(ctx context.Context, products []Product) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, menuCacheKey, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("menu cache write", slog.Any("error", err))
	}
}

// Invalidate drops the cached menu. Called after any product change.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, menuCacheKey).Err(); err != nil {
		s.logger.Warn("menu cache invalidate", slog.Any("error", err))
	}
}

// Get returns one product, active or not.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.store.Get(ctx, id)
}

// ListAll returns every product for back-office screens, bypassing the cache.
func (s *Service) ListAll(ctx context.Context) ([]Product, error) {
	return s.store.List(ctx, false)
}

// Create adds a product and invalidates the cached menu.
func (s *Service) Create(ctx context.Context, p Product) (int64, error) {
	id, err := s.store.Create(ctx, p)
	if err != nil {
		return 0, err
	}
	s.Invalidate(ctx)
	return id, nil
}

// Update rewrites a product and invalidates the cached menu.
func (s *Service) Update(ctx context.Context, p Product) error {
	if err := s.store.Update(ctx, p); err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}

// ProductForOrder resolves a product for order placement.
func (s *Service) ProductForOrder(ctx context.Context, productID int64) (orders.CatalogProduct, error) {
	p, err := s.store.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return orders.CatalogProduct{}, fmt.Errorf("product %d: %w", productID, orders.ErrProductNotFound)
		}
		return orders.CatalogProduct{}, err
	}
	return orders.CatalogProduct{
		ID:               p.ID,
		Name:             p.Name,
		UnitPrice:        p.UnitPrice,
		UnitPriceInclTax: p.PriceInclTax,
		TaxRate:          p.TaxRate,
		Active:           p.Active,
	}, nil
}
