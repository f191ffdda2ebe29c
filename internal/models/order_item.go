package models

import "time"

// OrderItem is one made-to-order garment within a client order. Its status
// composes signals from the packet engine, section tracker, and sales flow.
type OrderItem struct {
	ID          string      `db:"id" json:"id"`
	OrderID     string      `db:"order_id" json:"orderId"`
	ProductID   string      `db:"product_id" json:"productId"`
	ProductName string      `db:"product_name" json:"productName"`
	SizeCode    string      `db:"size_code" json:"sizeCode"`
	Status      OrderStatus `db:"status" json:"status"`
	TotalAmount float64     `db:"total_amount" json:"totalAmount"`

	// ProductionHead is set by round-robin assignment when production starts.
	ProductionHead *string    `db:"production_head_id" json:"productionHeadId,omitempty"`
	DueDate        *time.Time `db:"due_date" json:"dueDate,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`

	Sections []SectionState `db:"-" json:"sections,omitempty"`
}

// SectionState tracks one garment piece through production and QA.
type SectionState struct {
	ID              string        `db:"id" json:"id"`
	OrderItemID     string        `db:"order_item_id" json:"orderItemId"`
	Name            string        `db:"name" json:"name"`
	Status          SectionStatus `db:"status" json:"status"`
	CurrentRound    int           `db:"current_round" json:"currentRound"`
	QAVideoRef      *string       `db:"qa_video_ref" json:"qaVideoRef,omitempty"`
	VideoUploadedAt *time.Time    `db:"video_uploaded_at" json:"videoUploadedAt,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`

	Rejections []SectionRejection `db:"-" json:"rejections,omitempty"`
}

// SectionRejection is one rejection event in a section's history.
type SectionRejection struct {
	ID         string    `db:"id" json:"id"`
	SectionID  string    `db:"section_id" json:"sectionId"`
	Round      int       `db:"round" json:"round"`
	Stage      string    `db:"stage" json:"stage"`
	ReasonCode string    `db:"reason_code" json:"reasonCode"`
	Notes      string    `db:"notes" json:"notes"`
	RejectedBy string    `db:"rejected_by" json:"rejectedBy"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Rejection stages recorded against sections.
const (
	RejectionStageQA        = "QA"
	RejectionStageDyeing    = "DYEING"
	RejectionStageClient    = "CLIENT"
	RejectionStagePacketing = "PACKETING"
)

// AllSectionsApproved reports whether every section is simultaneously
// approved. Zero sections never satisfies the barrier.
func (o *OrderItem) AllSectionsApproved() bool {
	if len(o.Sections) == 0 {
		return false
	}
	for _, s := range o.Sections {
		if s.Status != SectionStatusApproved {
			return false
		}
	}
	return true
}
