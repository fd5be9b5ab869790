package fulfillment

// MoveLineRequest is the request body for a bucket move.
type MoveLineRequest struct {
	Target   string  `json:"target" validate:"required,oneof=pending preparing delivered voided"`
	Count    int64   `json:"count" validate:"required,gt=0"`
	Memo     *string `json:"memo,omitempty" validate:"omitempty,max=500"`
	Operator *int64  `json:"operator_id,omitempty"`
}
