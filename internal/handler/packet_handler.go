package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/service"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
	"github.com/stitchline/atelier-api/pkg/response"
)

// PacketHandler exposes the packet lifecycle endpoints.
type PacketHandler struct {
	service *service.PacketService
}

// NewPacketHandler creates a new handler.
func NewPacketHandler(svc *service.PacketService) *PacketHandler {
	return &PacketHandler{service: svc}
}

// Get godoc
// @Summary Get packet
// @Description Fetch a packet with its pick list and timeline
// @Tags Packets
// @Produce json
// @Param id path string true "Packet ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /packets/{id} [get]
// @Security BearerAuth
func (h *PacketHandler) Get(c *gin.Context) {
	packet, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packet, nil)
}

// GetForOrderItem godoc
// @Summary Get packet for order item
// @Tags Packets
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /order-items/{id}/packet [get]
// @Security BearerAuth
func (h *PacketHandler) GetForOrderItem(c *gin.Context) {
	packet, err := h.service.GetForOrderItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packet, nil)
}

// RemovedItems godoc
// @Summary Packet purge archive
// @Description List pick-list rows removed by packet extensions
// @Tags Packets
// @Produce json
// @Param id path string true "Packet ID"
// @Success 200 {object} response.Envelope
// @Router /packets/{id}/removed-items [get]
// @Security BearerAuth
func (h *PacketHandler) RemovedItems(c *gin.Context) {
	removed, err := h.service.RemovedItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, removed, nil)
}

// Assign godoc
// @Summary Assign packet
// @Description Hand a pending packet to a worker
// @Tags Packets
// @Accept json
// @Produce json
// @Param id path string true "Packet ID"
// @Param payload body dto.AssignPacketRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /packets/{id}/assign [post]
// @Security BearerAuth
func (h *PacketHandler) Assign(c *gin.Context) {
	var req dto.AssignPacketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	packet, err := h.service.Assign(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packet, nil)
}

// Start godoc
// @Summary Start picking
// @Description Assignee begins work on an assigned packet
// @Tags Packets
// @Produce json
// @Param id path string true "Packet ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /packets/{id}/start [post]
// @Security BearerAuth
func (h *PacketHandler) Start(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	packet, err := h.service.Start(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packet, nil)
}

// PickItem godoc
// @Summary Pick item
// @Description Mark one pick-list row as picked
// @Tags Packets
// @Accept json
// @Produce json
// @Param id path string true "Packet ID"
// @Param payload body dto.PickItemRequest true "Pick payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /packets/{id}/pick [post]
// @Security BearerAuth
func (h *PacketHandler) PickItem(c *gin.Context) {
	var req dto.PickItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pick payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.PickItem(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Complete godoc
// @Summary Complete packet
// @Description Close out picking once every item in scope is picked
// @Tags Packets
// @Accept json
// @Produce json
// @Param id path string true "Packet ID"
// @Param payload body dto.CompletePacketRequest false "Completion payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /packets/{id}/complete [post]
// @Security BearerAuth
func (h *PacketHandler) Complete(c *gin.Context) {
	// Completion accepts an empty body; notes are optional.
	var req dto.CompletePacketRequest
	_ = c.ShouldBindJSON(&req)

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	packet, err := h.service.Complete(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packet, nil)
}

// Approve godoc
// @Summary Approve packet
// @Description Accept a completed packet and route the order item downstream
// @Tags Packets
// @Accept json
// @Produce json
// @Param id path string true "Packet ID"
// @Param payload body dto.ApprovePacketRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /packets/{id}/approve [post]
// @Security BearerAuth
func (h *PacketHandler) Approve(c *gin.Context) {
	var req dto.ApprovePacketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	packet, err := h.service.Approve(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packet, nil)
}

// Reject godoc
// @Summary Reject packet
// @Description Send a completed packet back to its assignee
// @Tags Packets
// @Accept json
// @Produce json
// @Param id path string true "Packet ID"
// @Param payload body dto.RejectPacketRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /packets/{id}/reject [post]
// @Security BearerAuth
func (h *PacketHandler) Reject(c *gin.Context) {
	var req dto.RejectPacketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	packet, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packet, nil)
}
