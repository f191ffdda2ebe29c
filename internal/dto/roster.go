package dto

// AddHeadRequest appends a production head to the round-robin roster.
type AddHeadRequest struct {
	UserID   string `json:"userId" validate:"required"`
	FullName string `json:"fullName" validate:"required"`
}
