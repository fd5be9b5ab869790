package orders

import "time"

type PlaceOrderRequest struct {
	TableID   *int64              `json:"table_id,omitempty"`
	Memo      *string             `json:"memo,omitempty"`
	CreatedBy *int64              `json:"created_by,omitempty"`
	Lines     []PlaceOrderLineReq `json:"lines" validate:"required,min=1,dive"`
}

type PlaceOrderLineReq struct {
	ProductID int64      `json:"product_id" validate:"required,gt=0"`
	Quantity  int64      `json:"quantity" validate:"required,gt=0"`
	Memo      *string    `json:"memo,omitempty"`
	SalesDate *time.Time `json:"sales_date,omitempty"`
}
