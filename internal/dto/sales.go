package dto

// ReVideoRequest asks QA for a fresh client video. Order status is unchanged.
type ReVideoRequest struct {
	Notes string `json:"notes" validate:"required"`
}

// AlterationSection pairs a section with its mandatory alteration notes.
type AlterationSection struct {
	Name  string `json:"name" validate:"required"`
	Notes string `json:"notes" validate:"required"`
}

// AlterationRequest routes the selected sections back to rework. The batch is
// all-or-nothing: every section needs non-empty notes.
type AlterationRequest struct {
	Sections []AlterationSection `json:"sections" validate:"required,min=1,dive"`
}

// ScratchRequest resets the whole order item to the inventory-check stage.
type ScratchRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelRequest terminally cancels the order item on the client's behalf.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// PaymentRequest records a payment against an order item.
type PaymentRequest struct {
	Amount    float64 `json:"amount" validate:"gt=0"`
	Method    string  `json:"method" validate:"required"`
	Reference string  `json:"reference"`
}
