package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

// Repository provides PostgreSQL backed persistence for the menu.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, category, unit_price, price_incl_tax, tax_rate, active, sort_order, created_at, updated_at`

// Get retrieves a product by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns products, optionally restricted to active ones, in menu order.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products`, productColumns)
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// Create inserts a product and returns its ID.
func (r *Repository) Create(ctx context.Context, p Product) (int64, error) {
	var rate pgtype.Numeric
	if p.TaxRate != nil {
		_ = rate.Scan(p.TaxRate.String())
	}
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, category, unit_price, price_incl_tax, tax_rate, active, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id`,
		p.Name, p.Category, p.UnitPrice, p.PriceInclTax, rate, p.Active, p.SortOrder,
	).Scan(&id)
	return id, err
}

// Update rewrites the mutable fields of a product.
func (r *Repository) Update(ctx context.Context, p Product) error {
	var rate pgtype.Numeric
	if p.TaxRate != nil {
		_ = rate.Scan(p.TaxRate.String())
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, category = $2, unit_price = $3, price_incl_tax = $4, tax_rate = $5, active = $6, sort_order = $7, updated_at = NOW()
		WHERE id = $8`,
		p.Name, p.Category, p.UnitPrice, p.PriceInclTax, rate, p.Active, p.SortOrder, p.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var category pgtype.Text
	var inclTax pgtype.Int8
	var rate pgtype.Numeric
	err := row.Scan(
		&p.ID, &p.Name, &category, &p.UnitPrice, &inclTax, &rate,
		&p.Active, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if category.Valid {
		p.Category = &category.String
	}
	if inclTax.Valid {
		p.PriceInclTax = &inclTax.Int64
	}
	if rate.Valid {
		if val, err := rate.Value(); err == nil && val != nil {
			if d, err := decimal.NewFromString(val.(string)); err == nil {
				p.TaxRate = &d
			}
		}
	}
	return &p, nil
}
