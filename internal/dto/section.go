package dto

// RejectSectionRequest sends a garment piece back to rework.
type RejectSectionRequest struct {
	ReasonCode string `json:"reasonCode" validate:"required"`
	Notes      string `json:"notes" validate:"required"`
	// NeedsMaterials routes the section back through inventory allocation
	// and packet extension instead of straight to the production floor.
	NeedsMaterials bool `json:"needsMaterials"`
}

// AttachVideoRequest records the durable playback reference returned by the
// media service after an upload completes.
type AttachVideoRequest struct {
	VideoRef string `json:"videoRef" validate:"required"`
}
