package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tavola-pos/tavola/internal/platform/db"
)

var (
	ErrNotFound = errors.New("record not found")
)

// defaultListLimit caps unpaged listings. The handler applies it too so the
// pagination metadata always matches the rows returned.
const defaultListLimit = 50

// Repository provides PostgreSQL backed persistence for orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateOrder(ctx context.Context, o Order) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	GetOrderLines(ctx context.Context, orderID int64) ([]Line, error)
	UpdateTotals(ctx context.Context, orderID int64, totals Totals) error
	NextOrderNumber(ctx context.Context) (int64, error)
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

const orderColumns = `id, order_number, table_id, status, subtotal, tax_amount, total_amount, memo, created_by, created_at, updated_at`

const lineColumns = `id, order_id, product_id, quantity, unit_price, unit_price_incl_tax, tax_rate, status, memo, parent_line_id, sales_date, created_at`

// Get retrieves an order by ID with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	lines, err := r.GetOrderLines(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

// GetLine retrieves a single order line.
func (r *Repository) GetLine(ctx context.Context, lineID int64) (*Line, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_lines WHERE id = $1`, lineColumns)
	line, err := scanLine(r.pool.QueryRow(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// GetOrderLines retrieves all lines of an order, audit lines included.
func (r *Repository) GetOrderLines(ctx context.Context, orderID int64) ([]Line, error) {
	return getOrderLines(ctx, r.pool, orderID)
}

// ListOrdersRequest filters the order listing.
type ListOrdersRequest struct {
	Status   *OrderStatus
	TableID  *int64
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// List returns orders matching the filters plus the unpaged total.
func (r *Repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.TableID != nil {
		conditions = append(conditions, fmt.Sprintf("table_id = $%d", argPos))
		args = append(args, *req.TableID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

func (t *txRepo) CreateOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, table_id, status, subtotal, tax_amount, total_amount, memo, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id`,
		o.OrderNumber, o.TableID, o.Status, o.Subtotal, o.TaxAmount, o.TotalAmount, o.Memo, o.CreatedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	return insertLine(ctx, t.tx, line)
}

func (t *txRepo) GetOrderLines(ctx context.Context, orderID int64) ([]Line, error) {
	return getOrderLines(ctx, t.tx, orderID)
}

func (t *txRepo) UpdateTotals(ctx context.Context, orderID int64, totals Totals) error {
	return updateTotals(ctx, t.tx, orderID, totals)
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (t *txRepo) NextOrderNumber(ctx context.Context) (int64, error) {
	var count int64
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE created_at::date = CURRENT_DATE`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

// pgx pool and tx share the Query/QueryRow/Exec shapes; the small
// interfaces below keep the line helpers usable from both sides.
type lineQueryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type rowScanner interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func getOrderLines(ctx context.Context, q lineQueryer, orderID int64) ([]Line, error) {
	query := fmt.Sprintf(`SELECT %s FROM order_lines WHERE order_id = $1 ORDER BY id`, lineColumns)
	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func insertLine(ctx context.Context, q rowScanner, line Line) (int64, error) {
	var rate pgtype.Numeric
	if line.TaxRate != nil {
		rate = decimalToNumeric(*line.TaxRate)
	}
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, unit_price, unit_price_incl_tax, tax_rate, status, memo, parent_line_id, sales_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id`,
		line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.UnitPriceInclTax,
		rate, line.Status, line.Memo, line.ParentLineID, line.SalesDate,
	).Scan(&id)
	return id, err
}

func updateTotals(ctx context.Context, q execer, orderID int64, totals Totals) error {
	_, err := q.Exec(ctx, `UPDATE orders SET subtotal = $1, tax_amount = $2, total_amount = $3, updated_at = NOW() WHERE id = $4`,
		totals.Subtotal, totals.TaxAmount, totals.Total, orderID)
	return err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var tableID, createdBy pgtype.Int8
	var memo pgtype.Text
	err := row.Scan(
		&o.ID, &o.OrderNumber, &tableID, &o.Status,
		&o.Subtotal, &o.TaxAmount, &o.TotalAmount,
		&memo, &createdBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tableID.Valid {
		o.TableID = &tableID.Int64
	}
	if createdBy.Valid {
		o.CreatedBy = &createdBy.Int64
	}
	if memo.Valid {
		o.Memo = &memo.String
	}
	return &o, nil
}

func scanLine(row pgx.Row) (Line, error) {
	var line Line
	var inclTax, parentID pgtype.Int8
	var rate pgtype.Numeric
	var memo pgtype.Text
	var salesDate pgtype.Timestamptz
	err := row.Scan(
		&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice,
		&inclTax, &rate, &line.Status, &memo, &parentID, &salesDate, &line.CreatedAt,
	)
	if err != nil {
		return Line{}, err
	}
	if inclTax.Valid {
		line.UnitPriceInclTax = &inclTax.Int64
	}
	if rate.Valid {
		d := numericToDecimal(rate)
		line.TaxRate = &d
	}
	if memo.Valid {
		line.Memo = &memo.String
	}
	if parentID.Valid {
		line.ParentLineID = &parentID.Int64
	}
	if salesDate.Valid {
		t := salesDate.Time
		line.SalesDate = &t
	}
	return line, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
