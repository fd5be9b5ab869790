package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tavola-pos/tavola/internal/orders"
	"github.com/tavola-pos/tavola/internal/platform/db"
)

// ErrCountersNotFound means the line has no counter record yet. The service
// treats it as a signal to seed, not as a failure.
var ErrCountersNotFound = errors.New("fulfillment counters not found")

// Repository provides PostgreSQL backed persistence for the fulfillment
// counters and the audit ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes every store operation a move touches. One transaction
// covers the whole request so the row lock taken by GetCountersForUpdate
// serializes concurrent moves on the same line.
type TxRepository interface {
	GetLine(ctx context.Context, lineID int64) (*orders.Line, error)
	GetCounters(ctx context.Context, lineID int64) (*Counters, error)
	GetCountersForUpdate(ctx context.Context, lineID int64) (*Counters, error)
	InsertCounters(ctx context.Context, c Counters) error
	UpdateCounters(ctx context.Context, c Counters) error
	UpdateLineStatus(ctx context.Context, lineID int64, status orders.LineStatus) error
	InsertAuditLine(ctx context.Context, line orders.Line) (int64, error)
	GetOrderLines(ctx context.Context, orderID int64) ([]orders.Line, error)
	GetProductTaxRate(ctx context.Context, productID int64) (*decimal.Decimal, error)
	UpdateOrderTotals(ctx context.Context, orderID int64, totals orders.Totals) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const countersColumns = `line_id, pending, preparing, delivered, voided, updated_at`

// GetCounters reads a line's counters outside a transaction.
func (r *Repository) GetCounters(ctx context.Context, lineID int64) (*Counters, error) {
	return getCounters(ctx, r.pool, lineID, false)
}

type rowScanner interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getCounters(ctx context.Context, q rowScanner, lineID int64, forUpdate bool) (*Counters, error) {
	query := fmt.Sprintf(`SELECT %s FROM fulfillment_counters WHERE line_id = $1`, countersColumns)
	if forUpdate {
		query += " FOR UPDATE"
	}
	var c Counters
	err := q.QueryRow(ctx, query, lineID).Scan(
		&c.LineID, &c.Pending, &c.Preparing, &c.Delivered, &c.Voided, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCountersNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (t *txRepo) GetLine(ctx context.Context, lineID int64) (*orders.Line, error) {
	line, err := scanTxLine(ctx, t.tx, lineID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLineNotFound
		}
		return nil, err
	}
	return line, nil
}

func (t *txRepo) GetCounters(ctx context.Context, lineID int64) (*Counters, error) {
	return getCounters(ctx, t.tx, lineID, false)
}

func (t *txRepo) GetCountersForUpdate(ctx context.Context, lineID int64) (*Counters, error) {
	return getCounters(ctx, t.tx, lineID, true)
}

func (t *txRepo) InsertCounters(ctx context.Context, c Counters) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO fulfillment_counters (line_id, pending, preparing, delivered, voided, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (line_id) DO NOTHING`,
		c.LineID, c.Pending, c.Preparing, c.Delivered, c.Voided,
	)
	return err
}

func (t *txRepo) UpdateCounters(ctx context.Context, c Counters) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE fulfillment_counters
		SET pending = $1, preparing = $2, delivered = $3, voided = $4, updated_at = NOW()
		WHERE line_id = $5`,
		c.Pending, c.Preparing, c.Delivered, c.Voided, c.LineID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCountersNotFound
	}
	return nil
}

func (t *txRepo) UpdateLineStatus(ctx context.Context, lineID int64, status orders.LineStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE order_lines SET status = $1 WHERE id = $2`, string(status), lineID)
	return err
}

func (t *txRepo) InsertAuditLine(ctx context.Context, line orders.Line) (int64, error) {
	var rate pgtype.Numeric
	if line.TaxRate != nil {
		_ = rate.Scan(line.TaxRate.String())
	}
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, unit_price, unit_price_incl_tax, tax_rate, status, memo, parent_line_id, sales_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id`,
		line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.UnitPriceInclTax,
		rate, line.Status, line.Memo, line.ParentLineID, line.SalesDate,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetOrderLines(ctx context.Context, orderID int64) ([]orders.Line, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, unit_price_incl_tax, tax_rate, status, memo, parent_line_id, sales_date, created_at
		FROM order_lines WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []orders.Line
	for rows.Next() {
		line, err := scanLineRow(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (t *txRepo) GetProductTaxRate(ctx context.Context, productID int64) (*decimal.Decimal, error) {
	var rate pgtype.Numeric
	err := t.tx.QueryRow(ctx, `SELECT tax_rate FROM products WHERE id = $1`, productID).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !rate.Valid {
		return nil, nil
	}
	val, err := rate.Value()
	if err != nil || val == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return nil, nil
	}
	return &d, nil
}

func (t *txRepo) UpdateOrderTotals(ctx context.Context, orderID int64, totals orders.Totals) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE orders SET subtotal = $1, tax_amount = $2, total_amount = $3, updated_at = NOW()
		WHERE id = $4`,
		totals.Subtotal, totals.TaxAmount, totals.Total, orderID)
	return err
}

func scanTxLine(ctx context.Context, tx pgx.Tx, lineID int64) (*orders.Line, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, unit_price_incl_tax, tax_rate, status, memo, parent_line_id, sales_date, created_at
		FROM order_lines WHERE id = $1`, lineID)
	line, err := scanLineRow(row)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func scanLineRow(row pgx.Row) (orders.Line, error) {
	var line orders.Line
	var inclTax, parentID pgtype.Int8
	var rate pgtype.Numeric
	var memo pgtype.Text
	var salesDate pgtype.Timestamptz
	err := row.Scan(
		&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice,
		&inclTax, &rate, &line.Status, &memo, &parentID, &salesDate, &line.CreatedAt,
	)
	if err != nil {
		return orders.Line{}, err
	}
	if inclTax.Valid {
		line.UnitPriceInclTax = &inclTax.Int64
	}
	if rate.Valid {
		if val, err := rate.Value(); err == nil && val != nil {
			if d, err := decimal.NewFromString(val.(string)); err == nil {
				line.TaxRate = &d
			}
		}
	}
	if memo.Valid {
		line.Memo = &memo.String
	}
	if parentID.Valid {
		line.ParentLineID = &parentID.Int64
	}
	if salesDate.Valid {
		tm := salesDate.Time
		line.SalesDate = &tm
	}
	return line, nil
}
