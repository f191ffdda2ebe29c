package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/stitchline/atelier-api/internal/service"
	"github.com/stitchline/atelier-api/pkg/response"
)

// ExportHandler serves printable exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// PickListSheet godoc
// @Summary Pick list sheet
// @Description Printable PDF of the packet's current pick list
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Packet ID"
// @Success 200 {file} binary
// @Router /packets/{id}/export/pick-list [get]
// @Security BearerAuth
func (h *ExportHandler) PickListSheet(c *gin.Context) {
	data, filename, err := h.service.PickListSheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, "application/pdf", data)
}

// TimelineCSV godoc
// @Summary Timeline export
// @Description CSV of the packet's append-only history
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Packet ID"
// @Success 200 {file} binary
// @Router /packets/{id}/export/timeline [get]
// @Security BearerAuth
func (h *ExportHandler) TimelineCSV(c *gin.Context) {
	data, filename, err := h.service.TimelineCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, "text/csv", data)
}
