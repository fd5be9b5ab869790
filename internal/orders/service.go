package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// placeOrderAttempts bounds the retries when concurrent placements race to
// the same daily order number.
const placeOrderAttempts = 3

// Errors returned by the order service.
var (
	ErrEmptyLines      = errors.New("lines are required")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is not on the menu")
)

// CatalogProduct is the price snapshot the order service needs from the menu.
type CatalogProduct struct {
	ID               int64
	Name             string
	UnitPrice        int64
	UnitPriceInclTax *int64
	TaxRate          *decimal.Decimal
	Active           bool
}

// Catalog resolves products at order time. Implemented by the menu service.
type Catalog interface {
	ProductForOrder(ctx context.Context, productID int64) (CatalogProduct, error)
}

// Store is the persistence surface the service needs. *Repository satisfies
// it; tests substitute an in-memory implementation.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	GetLine(ctx context.Context, lineID int64) (*Line, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
}

// Service handles order placement and reads.
type Service struct {
	repo        Store
	catalog     Catalog
	defaultRate decimal.Decimal
	logger      *slog.Logger
}

// NewService constructs an order service.
func NewService(repo Store, catalog Catalog, defaultRate decimal.Decimal, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		catalog:     catalog,
		defaultRate: defaultRate,
		logger:      logger,
	}
}

// PlaceOrder validates the request, snapshots prices from the catalog and
// creates the header plus its positive lines atomically. Totals go through
// ComputeTotals so placement and recalculation share one code path.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	type preparedLine struct {
		line Line
	}
	var prepared []preparedLine
	for i, lineReq := range req.Lines {
		if lineReq.Quantity <= 0 {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrInvalidQuantity)
		}
		product, err := s.catalog.ProductForOrder(ctx, lineReq.ProductID)
		if err != nil {
			return nil, fmt.Errorf("line[%d]: %w", i, err)
		}
		if !product.Active {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrProductInactive)
		}
		prepared = append(prepared, preparedLine{line: Line{
			ProductID:        product.ID,
			Quantity:         lineReq.Quantity,
			UnitPrice:        product.UnitPrice,
			UnitPriceInclTax: product.UnitPriceInclTax,
			TaxRate:          product.TaxRate,
			Status:           string(LineStatusNew),
			Memo:             lineReq.Memo,
			SalesDate:        lineReq.SalesDate,
		}})
	}

	// Two simultaneous placements can compute the same daily sequence and
	// collide on the order number's unique constraint. Each retry reruns
	// the whole transaction, so the number is derived again.
	var orderID int64
	var err error
	for attempt := 1; attempt <= placeOrderAttempts; attempt++ {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			seq, err := tx.NextOrderNumber(ctx)
			if err != nil {
				return fmt.Errorf("next order number: %w", err)
			}
			order := Order{
				OrderNumber: fmt.Sprintf("ORD-%s-%04d", time.Now().Format("20060102"), seq),
				TableID:     req.TableID,
				Status:      OrderStatusOpen,
				Memo:        req.Memo,
				CreatedBy:   req.CreatedBy,
			}
			id, err := tx.CreateOrder(ctx, order)
			if err != nil {
				return fmt.Errorf("create order: %w", err)
			}
			orderID = id

			var lines []Line
			for _, p := range prepared {
				p.line.OrderID = orderID
				lineID, err := tx.InsertLine(ctx, p.line)
				if err != nil {
					return fmt.Errorf("insert order line: %w", err)
				}
				p.line.ID = lineID
				lines = append(lines, p.line)
			}

			totals := ComputeTotals(lines, s.defaultRate)
			if err := tx.UpdateTotals(ctx, orderID, totals); err != nil {
				return fmt.Errorf("update totals: %w", err)
			}
			return nil
		})
		if err == nil || !isUniqueViolation(err) {
			break
		}
		s.logger.Warn("order number collision, retrying",
			slog.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, orderID)
}

// Get returns one order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// GetLine returns one line.
func (s *Service) GetLine(ctx context.Context, lineID int64) (*Line, error) {
	return s.repo.GetLine(ctx, lineID)
}

// List returns orders matching the filters.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	return s.repo.List(ctx, req)
}
