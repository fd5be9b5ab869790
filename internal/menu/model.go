package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one menu item. UnitPrice is tax-exclusive minor currency units;
// PriceInclTax is the register-facing inclusive price when one is maintained.
type Product struct {
	ID           int64            `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Category     *string          `json:"category,omitempty" db:"category"`
	UnitPrice    int64            `json:"unit_price" db:"unit_price"`
	PriceInclTax *int64           `json:"price_incl_tax,omitempty" db:"price_incl_tax"`
	TaxRate      *decimal.Decimal `json:"tax_rate,omitempty" db:"tax_rate"`
	Active       bool             `json:"active" db:"active"`
	SortOrder    int              `json:"sort_order" db:"sort_order"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}
