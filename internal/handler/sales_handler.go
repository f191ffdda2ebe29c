package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/models"
	"github.com/stitchline/atelier-api/internal/service"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
	"github.com/stitchline/atelier-api/pkg/response"
)

// SalesHandler exposes the client review and payment endpoints.
type SalesHandler struct {
	service *service.SalesService
}

// NewSalesHandler creates a new handler.
func NewSalesHandler(svc *service.SalesService) *SalesHandler {
	return &SalesHandler{service: svc}
}

// SendToClient godoc
// @Summary Send to client
// @Description Forward the QA videos to the client for review
// @Tags Sales
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/send-to-client [post]
// @Security BearerAuth
func (h *SalesHandler) SendToClient(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.SendToClient(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// ClientApprove godoc
// @Summary Client approval
// @Description Record the client's acceptance and hand the order item to accounts
// @Tags Sales
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/client-approve [post]
// @Security BearerAuth
func (h *SalesHandler) ClientApprove(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.ClientApprove(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// ReVideo godoc
// @Summary Request re-video
// @Description Ask QA for a fresh video without touching the garment
// @Tags Sales
// @Accept json
// @Produce json
// @Param id path string true "Order item ID"
// @Param payload body dto.ReVideoRequest true "Re-video payload"
// @Success 204 {object} response.Envelope
// @Router /order-items/{id}/re-video [post]
// @Security BearerAuth
func (h *SalesHandler) ReVideo(c *gin.Context) {
	var req dto.ReVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid re-video payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.RequestReVideo(c.Request.Context(), c.Param("id"), req, user); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Alteration godoc
// @Summary Request alterations
// @Description Send selected sections back to rework with per-section notes
// @Tags Sales
// @Accept json
// @Produce json
// @Param id path string true "Order item ID"
// @Param payload body dto.AlterationRequest true "Alteration payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/alterations [post]
// @Security BearerAuth
func (h *SalesHandler) Alteration(c *gin.Context) {
	var req dto.AlterationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid alteration payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.RequestAlteration(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Scratch godoc
// @Summary Start from scratch
// @Description Restart the garment at the inventory check
// @Tags Sales
// @Accept json
// @Produce json
// @Param id path string true "Order item ID"
// @Param payload body dto.ScratchRequest true "Scratch payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/scratch [post]
// @Security BearerAuth
func (h *SalesHandler) Scratch(c *gin.Context) {
	var req dto.ScratchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scratch payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.StartFromScratch(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Cancel godoc
// @Summary Cancel order item
// @Description Terminally cancel the order item on the client's behalf
// @Tags Sales
// @Accept json
// @Produce json
// @Param id path string true "Order item ID"
// @Param payload body dto.CancelRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/cancel [post]
// @Security BearerAuth
func (h *SalesHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// RecordPayment godoc
// @Summary Record payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Order item ID"
// @Param payload body dto.PaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /order-items/{id}/payments [post]
// @Security BearerAuth
func (h *SalesHandler) RecordPayment(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payment, err := h.service.RecordPayment(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Payments godoc
// @Summary Payment history
// @Tags Payments
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Router /order-items/{id}/payments [get]
// @Security BearerAuth
func (h *SalesHandler) Payments(c *gin.Context) {
	payments, total, err := h.service.Payments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"payments": payments, "totalPaid": total}, nil)
}

// AccountApprove godoc
// @Summary Account approval
// @Description Release for dispatch once payments cover the full amount
// @Tags Payments
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/account-approve [post]
// @Security BearerAuth
func (h *SalesHandler) AccountApprove(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.AccountApprove(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Dispatch godoc
// @Summary Dispatch order item
// @Tags Sales
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/dispatch [post]
// @Security BearerAuth
func (h *SalesHandler) Dispatch(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.Dispatch(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Approvals godoc
// @Summary Approval audit trail
// @Description List recorded sales decisions
// @Tags Sales
// @Produce json
// @Param order_item_id query string false "Filter by order item"
// @Param action query string false "Filter by action"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /approvals [get]
// @Security BearerAuth
func (h *SalesHandler) Approvals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	filter := models.ApprovalFilter{
		OrderItemID: c.Query("order_item_id"),
		Action:      models.ApprovalAction(c.Query("action")),
		Limit:       limit,
		Offset:      offset,
	}
	requests, err := h.service.Approvals(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
