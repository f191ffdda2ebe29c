package dto

import (
	"time"

	"github.com/stitchline/atelier-api/internal/models"
)

// CreateOrderItemRequest registers a new made-to-order garment.
type CreateOrderItemRequest struct {
	OrderID     string     `json:"orderId" validate:"required"`
	ProductID   string     `json:"productId" validate:"required"`
	ProductName string     `json:"productName" validate:"required"`
	SizeCode    string     `json:"sizeCode" validate:"required"`
	Pieces      []string   `json:"pieces" validate:"required,min=1,dive,required"`
	TotalAmount float64    `json:"totalAmount" validate:"gt=0"`
	DueDate     *time.Time `json:"dueDate"`
}

// InventoryCheckRequest runs allocation for an order item. When only a subset
// of sections could be supplied, PassedSections and PendingSections split the
// set and a partial packet is created.
type InventoryCheckRequest struct {
	PassedSections  []string `json:"passedSections"`
	PendingSections []string `json:"pendingSections"`
}

// BoardColumn groups order items under one workflow status.
type BoardColumn struct {
	Status models.OrderStatus `json:"status"`
	Items  []models.OrderItem `json:"items"`
}

// Board is the workflow overview grouped by status.
type Board struct {
	Columns     []BoardColumn `json:"columns"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
