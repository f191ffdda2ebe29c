package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/service"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
	"github.com/stitchline/atelier-api/pkg/response"
)

// RosterHandler exposes the production-head roster endpoints.
type RosterHandler struct {
	service *service.AssignmentService
}

// NewRosterHandler creates a new handler.
func NewRosterHandler(svc *service.AssignmentService) *RosterHandler {
	return &RosterHandler{service: svc}
}

// AddHead godoc
// @Summary Add production head
// @Description Append a production head to the round-robin roster
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.AddHeadRequest true "Head payload"
// @Success 201 {object} response.Envelope
// @Router /roster/heads [post]
// @Security BearerAuth
func (h *RosterHandler) AddHead(c *gin.Context) {
	var req dto.AddHeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid head payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	head, err := h.service.AddHead(c.Request.Context(), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, head)
}

// ListHeads godoc
// @Summary List roster
// @Description Active production heads in rotation order
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roster/heads [get]
// @Security BearerAuth
func (h *RosterHandler) ListHeads(c *gin.Context) {
	heads, err := h.service.ListHeads(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, heads, nil)
}
