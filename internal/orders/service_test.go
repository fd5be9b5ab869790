package orders

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	orders     map[int64]*Order
	lines      map[int64]*Line
	nextID     int64
	nextLineID int64

	// createOrderErrs is consumed one per CreateOrder call to script
	// failures such as unique-constraint collisions.
	createOrderErrs []error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orders: make(map[int64]*Order),
		lines:  make(map[int64]*Line),
	}
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryStore) CreateOrder(_ context.Context, o Order) (int64, error) {
	if len(m.createOrderErrs) > 0 {
		err := m.createOrderErrs[0]
		m.createOrderErrs = m.createOrderErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	m.nextID++
	o.ID = m.nextID
	o.CreatedAt = time.Now()
	m.orders[o.ID] = &o
	return o.ID, nil
}

func (m *memoryStore) InsertLine(_ context.Context, line Line) (int64, error) {
	m.nextLineID++
	line.ID = m.nextLineID
	m.lines[line.ID] = &line
	return line.ID, nil
}

func (m *memoryStore) GetOrderLines(_ context.Context, orderID int64) ([]Line, error) {
	var out []Line
	for _, l := range m.lines {
		if l.OrderID == orderID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateTotals(_ context.Context, orderID int64, totals Totals) error {
	o, ok := m.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.Subtotal = totals.Subtotal
	o.TaxAmount = totals.TaxAmount
	o.TotalAmount = totals.Total
	return nil
}

func (m *memoryStore) NextOrderNumber(_ context.Context) (int64, error) {
	return int64(len(m.orders) + 1), nil
}

func (m *memoryStore) Get(ctx context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	lines, _ := m.GetOrderLines(ctx, id)
	cp.Lines = lines
	return &cp, nil
}

func (m *memoryStore) GetLine(_ context.Context, lineID int64) (*Line, error) {
	l, ok := m.lines[lineID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memoryStore) List(_ context.Context, _ ListOrdersRequest) ([]Order, int, error) {
	var out []Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

type fakeCatalog struct {
	products map[int64]CatalogProduct
}

func (c *fakeCatalog) ProductForOrder(_ context.Context, productID int64) (CatalogProduct, error) {
	p, ok := c.products[productID]
	if !ok {
		return CatalogProduct{}, ErrProductNotFound
	}
	return p, nil
}

func testCatalog() *fakeCatalog {
	r := decimal.RequireFromString("0.10")
	return &fakeCatalog{products: map[int64]CatalogProduct{
		1: {ID: 1, Name: "Ramen", UnitPrice: 900, TaxRate: &r, Active: true},
		2: {ID: 2, Name: "Gyoza", UnitPrice: 450, TaxRate: &r, Active: true},
		3: {ID: 3, Name: "Retired", UnitPrice: 100, Active: false},
	}}
}

func TestPlaceOrder(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testCatalog(), decimal.RequireFromString("0.10"), slog.Default())

	tableID := int64(4)
	order, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		TableID: &tableID,
		Lines: []PlaceOrderLineReq{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Equal(t, OrderStatusOpen, order.Status)
	require.Len(t, order.Lines, 2)
	// Prices snapshotted from the catalog, status starts at new.
	assert.Equal(t, int64(900), order.Lines[0].UnitPrice)
	assert.Equal(t, "new", order.Lines[0].Status)
	// 2*900 + 450 = 2250 subtotal, 10% tax floored per unit.
	assert.Equal(t, int64(2250), order.Subtotal)
	assert.Equal(t, int64(225), order.TaxAmount)
	assert.Equal(t, int64(2475), order.TotalAmount)
}

func TestPlaceOrder_RetriesOrderNumberCollision(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}

	store := newMemoryStore()
	store.createOrderErrs = []error{dup}
	svc := NewService(store, testCatalog(), decimal.RequireFromString("0.10"), slog.Default())

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Lines: []PlaceOrderLineReq{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Len(t, store.orders, 1)

	// A collision on every attempt surfaces the conflict to the caller.
	store = newMemoryStore()
	store.createOrderErrs = []error{dup, dup, dup}
	svc = NewService(store, testCatalog(), decimal.RequireFromString("0.10"), slog.Default())

	_, err = svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Lines: []PlaceOrderLineReq{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)
	assert.Empty(t, store.orders)

	// Non-duplicate failures are not retried.
	store = newMemoryStore()
	store.createOrderErrs = []error{errors.New("connection reset")}
	svc = NewService(store, testCatalog(), decimal.RequireFromString("0.10"), slog.Default())

	_, err = svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Lines: []PlaceOrderLineReq{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.createOrderErrs, "a plain failure must consume exactly one attempt")
}

func TestPlaceOrder_Validation(t *testing.T) {
	svc := NewService(newMemoryStore(), testCatalog(), decimal.RequireFromString("0.10"), slog.Default())
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{})
	assert.ErrorIs(t, err, ErrEmptyLines)

	_, err = svc.PlaceOrder(ctx, PlaceOrderRequest{Lines: []PlaceOrderLineReq{{ProductID: 1, Quantity: 0}}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PlaceOrder(ctx, PlaceOrderRequest{Lines: []PlaceOrderLineReq{{ProductID: 99, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.PlaceOrder(ctx, PlaceOrderRequest{Lines: []PlaceOrderLineReq{{ProductID: 3, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrProductInactive)
}
