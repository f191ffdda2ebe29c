package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/service"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
	"github.com/stitchline/atelier-api/pkg/response"
)

// OrderHandler exposes order item endpoints.
type OrderHandler struct {
	service *service.OrderService
}

// NewOrderHandler creates a new handler.
func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{service: svc}
}

// Create godoc
// @Summary Register order item
// @Description Register a made-to-order garment with one section per piece
// @Tags Orders
// @Accept json
// @Produce json
// @Param payload body dto.CreateOrderItemRequest true "Order item payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /order-items [post]
// @Security BearerAuth
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid order item payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.Create(c.Request.Context(), req, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Get godoc
// @Summary Get order item
// @Description Fetch an order item with its sections
// @Tags Orders
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /order-items/{id} [get]
// @Security BearerAuth
func (h *OrderHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Board godoc
// @Summary Workflow board
// @Description List order items grouped by workflow status
// @Tags Orders
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /board [get]
// @Security BearerAuth
func (h *OrderHandler) Board(c *gin.Context) {
	board, err := h.service.Board(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}

// InventoryCheck godoc
// @Summary Run inventory check
// @Description Record an allocation outcome and create or extend the packet
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order item ID"
// @Param payload body dto.InventoryCheckRequest true "Inventory check payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/inventory-check [post]
// @Security BearerAuth
func (h *OrderHandler) InventoryCheck(c *gin.Context) {
	var req dto.InventoryCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid inventory check payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	packet, err := h.service.RunInventoryCheck(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packet, nil)
}

// CompleteProduction godoc
// @Summary Complete production
// @Description Mark floor work done and hand every produced section to QA
// @Tags Orders
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/complete-production [post]
// @Security BearerAuth
func (h *OrderHandler) CompleteProduction(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.CompleteProduction(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
