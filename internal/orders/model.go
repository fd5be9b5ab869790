package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle of an order header.
type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "OPEN"
	OrderStatusClosed OrderStatus = "CLOSED"
)

// Order is one guest check: a header plus its lines. Monetary amounts are
// tax-exclusive integers in minor currency units; Subtotal/TaxAmount/
// TotalAmount are a cached projection maintained by the recalculator.
type Order struct {
	ID          int64       `json:"id" db:"id"`
	OrderNumber string      `json:"order_number" db:"order_number"`
	TableID     *int64      `json:"table_id,omitempty" db:"table_id"`
	Status      OrderStatus `json:"status" db:"status"`
	Subtotal    int64       `json:"subtotal" db:"subtotal"`
	TaxAmount   int64       `json:"tax_amount" db:"tax_amount"`
	TotalAmount int64       `json:"total_amount" db:"total_amount"`
	Memo        *string     `json:"memo,omitempty" db:"memo"`
	CreatedBy   *int64      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
	Lines       []Line      `json:"lines,omitempty" db:"-"`
}

// Line is one ordered quantity of one product. Quantity is signed: positive
// for ordered lines, negative only for void audit lines written by the
// fulfillment ledger. A line's sign is fixed at creation and lines are never
// deleted; cancellation appends a negative line instead of mutating this one.
type Line struct {
	ID        int64  `json:"id" db:"id"`
	OrderID   int64  `json:"order_id" db:"order_id"`
	ProductID int64  `json:"product_id" db:"product_id"`
	Quantity  int64  `json:"quantity" db:"quantity"`
	UnitPrice int64  `json:"unit_price" db:"unit_price"`
	// UnitPriceInclTax is the tax-inclusive price recorded at order time,
	// when the register captured one. Used by the tax-rate inference
	// fallback for audit lines.
	UnitPriceInclTax *int64           `json:"unit_price_incl_tax,omitempty" db:"unit_price_incl_tax"`
	TaxRate          *decimal.Decimal `json:"tax_rate,omitempty" db:"tax_rate"`
	// Status is stored raw: old registers wrote localized synonyms and the
	// recalculator needs to distinguish them from projector output.
	Status       string     `json:"status" db:"status"`
	Memo         *string    `json:"memo,omitempty" db:"memo"`
	ParentLineID *int64     `json:"parent_line_id,omitempty" db:"parent_line_id"`
	SalesDate    *time.Time `json:"sales_date,omitempty" db:"sales_date"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// IsAudit reports whether the line is a negative audit record.
func (l Line) IsAudit() bool {
	return l.Quantity < 0
}

// Totals is the derived monetary projection of an order.
type Totals struct {
	Subtotal  int64 `json:"subtotal"`
	TaxAmount int64 `json:"tax_amount"`
	Total     int64 `json:"total"`
}
