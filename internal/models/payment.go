package models

import "time"

// Payment is one recorded payment against an order item. Dispatch is gated
// on the sum of payments reaching the order item's total amount.
type Payment struct {
	ID          string    `db:"id" json:"id"`
	OrderItemID string    `db:"order_item_id" json:"orderItemId"`
	Amount      float64   `db:"amount" json:"amount"`
	Method      string    `db:"method" json:"method"`
	Reference   string    `db:"reference" json:"reference"`
	RecordedBy  string    `db:"recorded_by" json:"recordedBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
