package menu

// SaveProductRequest is the body for product create and update.
type SaveProductRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Category     *string `json:"category,omitempty" validate:"omitempty,max=100"`
	UnitPrice    int64   `json:"unit_price" validate:"gte=0"`
	PriceInclTax *int64  `json:"price_incl_tax,omitempty" validate:"omitempty,gte=0"`
	TaxRate      *string `json:"tax_rate,omitempty"`
	Active       bool    `json:"active"`
	SortOrder    int     `json:"sort_order"`
}
