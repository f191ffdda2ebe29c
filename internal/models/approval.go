package models

import (
	"time"

	"github.com/lib/pq"
)

// ApprovalAction enumerates the client-rejection decision tree.
type ApprovalAction string

const (
	ApprovalActionReVideo    ApprovalAction = "RE_VIDEO"
	ApprovalActionAlteration ApprovalAction = "ALTERATION"
	ApprovalActionScratch    ApprovalAction = "SCRATCH"
	ApprovalActionCancel     ApprovalAction = "CANCEL"
)

// ApprovalRequest records a sales-level decision against an order item.
// Stored for audit; the state changes themselves happen synchronously.
type ApprovalRequest struct {
	ID           string         `db:"id" json:"id"`
	OrderItemID  string         `db:"order_item_id" json:"orderItemId"`
	Action       ApprovalAction `db:"action" json:"action"`
	Sections     pq.StringArray `db:"sections" json:"sections,omitempty"`
	SectionNotes []byte         `db:"section_notes" json:"sectionNotes,omitempty"`
	Reason       string         `db:"reason" json:"reason"`
	RequestedBy  string         `db:"requested_by" json:"requestedBy"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// ApprovalFilter constrains approval request listings.
type ApprovalFilter struct {
	OrderItemID string
	Action      ApprovalAction
	Limit       int
	Offset      int
}
