package tables

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("table not found")

// Repository provides PostgreSQL backed persistence for tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tableColumns = `id, number, seats, session_token, active, created_at`

// Get retrieves a table by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Table, error) {
	query := fmt.Sprintf(`SELECT %s FROM tables WHERE id = $1`, tableColumns)
	return scanTable(r.pool.QueryRow(ctx, query, id))
}

// GetBySessionToken resolves the table behind a guest QR token.
func (r *Repository) GetBySessionToken(ctx context.Context, token string) (*Table, error) {
	query := fmt.Sprintf(`SELECT %s FROM tables WHERE session_token = $1 AND active`, tableColumns)
	return scanTable(r.pool.QueryRow(ctx, query, token))
}

// List returns all tables.
func (r *Repository) List(ctx context.Context) ([]Table, error) {
	query := fmt.Sprintf(`SELECT %s FROM tables ORDER BY number`, tableColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// RotateSessionToken issues a fresh QR token for a table, invalidating the
// old one. Done at close of business or when a QR code leaks.
func (r *Repository) RotateSessionToken(ctx context.Context, tableID int64) (string, error) {
	token := uuid.NewString()
	tag, err := r.pool.Exec(ctx, `UPDATE tables SET session_token = $1 WHERE id = $2`, token, tableID)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return "", ErrNotFound
	}
	return token, nil
}

func scanTable(row pgx.Row) (*Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.Number, &t.Seats, &t.SessionToken, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
