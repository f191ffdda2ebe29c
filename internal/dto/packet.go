package dto

// AssignPacketRequest assigns a packet to a worker.
type AssignPacketRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// PickItemRequest marks a single pick-list row as picked.
type PickItemRequest struct {
	ItemID    string  `json:"itemId" validate:"required"`
	PickedQty float64 `json:"pickedQty" validate:"gt=0"`
}

// CompletePacketRequest closes out picking for the active round.
type CompletePacketRequest struct {
	Notes string `json:"notes"`
}

// ApprovePacketRequest approves a completed packet. IsReadyStock selects the
// downstream branch: true routes to QA, false to production.
type ApprovePacketRequest struct {
	IsReadyStock bool   `json:"isReadyStock"`
	Notes        string `json:"notes"`
}

// RejectPacketRequest sends a completed packet back to its assignee.
type RejectPacketRequest struct {
	ReasonCode string `json:"reasonCode" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
	Notes      string `json:"notes"`
}
