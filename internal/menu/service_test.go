package menu

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavola-pos/tavola/internal/orders"
)

type fakeStore struct {
	products  map[int64]Product
	listCalls int
}

func newFakeStore(products ...Product) *fakeStore {
	s := &fakeStore{products: make(map[int64]Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id int64) (*Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *fakeStore) List(_ context.Context, activeOnly bool) ([]Product, error) {
	s.listCalls++
	var out []Product
	for _, p := range s.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, p Product) (int64, error) {
	id := int64(len(s.products) + 1)
	p.ID = id
	s.products[id] = p
	return id, nil
}

func (s *fakeStore) Update(_ context.Context, p Product) error {
	if _, ok := s.products[p.ID]; !ok {
		return ErrNotFound
	}
	s.products[p.ID] = p
	return nil
}

func newCachedService(t *testing.T, store *fakeStore) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(store, client, time.Minute, slog.Default()), mr
}

func TestMenu_CachesActiveProducts(t *testing.T) {
	store := newFakeStore(
		Product{ID: 1, Name: "Ramen", UnitPrice: 900, Active: true},
		Product{ID: 2, Name: "Retired", UnitPrice: 100, Active: false},
	)
	svc, mr := newCachedService(t, store)
	ctx := context.Background()

	products, err := svc.Menu(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Ramen", products[0].Name)
	assert.Equal(t, 1, store.listCalls)
	assert.True(t, mr.Exists(menuCacheKey))

	// Second read comes from the cache.
	products, err = svc.Menu(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, store.listCalls)
}

func TestMenu_CacheExpiry(t *testing.T) {
	store := newFakeStore(Product{ID: 1, Name: "Ramen", UnitPrice: 900, Active: true})
	svc, mr := newCachedService(t, store)
	ctx := context.Background()

	_, err := svc.Menu(ctx)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = svc.Menu(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls)
}

func TestCreate_InvalidatesCache(t *testing.T) {
	store := newFakeStore(Product{ID: 1, Name: "Ramen", UnitPrice: 900, Active: true})
	svc, mr := newCachedService(t, store)
	ctx := context.Background()

	_, err := svc.Menu(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(menuCacheKey))

	_, err = svc.Create(ctx, Product{Name: "Gyoza", UnitPrice: 450, Active: true})
	require.NoError(t, err)
	assert.False(t, mr.Exists(menuCacheKey))
}

func TestMenu_WorksWithoutCache(t *testing.T) {
	store := newFakeStore(Product{ID: 1, Name: "Ramen", UnitPrice: 900, Active: true})
	svc := NewService(store, nil, time.Minute, slog.Default())

	products, err := svc.Menu(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestProductForOrder(t *testing.T) {
	rate := decimal.RequireFromString("0.08")
	incl := int64(972)
	store := newFakeStore(Product{ID: 3, Name: "Beer", UnitPrice: 900, PriceInclTax: &incl, TaxRate: &rate, Active: true})
	svc := NewService(store, nil, time.Minute, slog.Default())
	ctx := context.Background()

	p, err := svc.ProductForOrder(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, int64(900), p.UnitPrice)
	require.NotNil(t, p.UnitPriceInclTax)
	assert.Equal(t, incl, *p.UnitPriceInclTax)
	require.NotNil(t, p.TaxRate)
	assert.True(t, p.TaxRate.Equal(rate))
	assert.True(t, p.Active)

	_, err = svc.ProductForOrder(ctx, 404)
	assert.ErrorIs(t, err, orders.ErrProductNotFound)
}
