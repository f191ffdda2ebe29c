package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/service"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
	"github.com/stitchline/atelier-api/pkg/response"
)

// SectionHandler exposes per-section QA endpoints.
type SectionHandler struct {
	service     *service.SectionService
	maxFileSize int64
}

// NewSectionHandler creates a new handler.
func NewSectionHandler(svc *service.SectionService, maxFileSize int64) *SectionHandler {
	if maxFileSize <= 0 {
		maxFileSize = 200 * 1024 * 1024
	}
	return &SectionHandler{service: svc, maxFileSize: maxFileSize}
}

// Approve godoc
// @Summary Approve section
// @Description Pass one section through QA; advances the order item once every section is approved
// @Tags Sections
// @Produce json
// @Param id path string true "Order item ID"
// @Param name path string true "Section name"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/sections/{name}/approve [post]
// @Security BearerAuth
func (h *SectionHandler) Approve(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.Approve(c.Request.Context(), c.Param("id"), c.Param("name"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Reject godoc
// @Summary Reject section
// @Description Send one section back for rework with mandatory notes
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Order item ID"
// @Param name path string true "Section name"
// @Param payload body dto.RejectSectionRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/sections/{name}/reject [post]
// @Security BearerAuth
func (h *SectionHandler) Reject(c *gin.Context) {
	var req dto.RejectSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.Reject(c.Request.Context(), c.Param("id"), c.Param("name"), req, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// UploadVideo godoc
// @Summary Upload QA video
// @Description Store a QA walkthrough video for a section
// @Tags Sections
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Order item ID"
// @Param name path string true "Section name"
// @Param video formData file true "Video file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /order-items/{id}/sections/{name}/video [post]
// @Security BearerAuth
func (h *SectionHandler) UploadVideo(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "video file required"))
		return
	}
	if fileHeader.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "video file too large"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable video file"))
		return
	}
	defer file.Close() //nolint:errcheck

	ref, err := h.service.UploadVideo(c.Request.Context(), c.Param("id"), c.Param("name"), fileHeader.Filename, file, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"videoRef": ref}, nil)
}

// AttachVideo godoc
// @Summary Attach QA video reference
// @Description Record a reference produced by an external upload flow
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Order item ID"
// @Param name path string true "Section name"
// @Param payload body dto.AttachVideoRequest true "Video reference payload"
// @Success 204 {object} response.Envelope
// @Router /order-items/{id}/sections/{name}/video-ref [put]
// @Security BearerAuth
func (h *SectionHandler) AttachVideo(c *gin.Context) {
	var req dto.AttachVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid video payload"))
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.AttachVideo(c.Request.Context(), c.Param("id"), c.Param("name"), req, user); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PlaybackURL godoc
// @Summary Signed playback link
// @Description Return a signed playback URL for a section's QA video
// @Tags Sections
// @Produce json
// @Param id path string true "Order item ID"
// @Param name path string true "Section name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /order-items/{id}/sections/{name}/video [get]
// @Security BearerAuth
func (h *SectionHandler) PlaybackURL(c *gin.Context) {
	url, expiresAt, err := h.service.PlaybackURL(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"url": url, "expiresAt": expiresAt}, nil)
}

// ConfirmVideos godoc
// @Summary Confirm QA videos
// @Description Move the order item from the video stage to client review
// @Tags Sections
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /order-items/{id}/confirm-videos [post]
// @Security BearerAuth
func (h *SectionHandler) ConfirmVideos(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.ConfirmVideos(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Rejections godoc
// @Summary Section rejection history
// @Tags Sections
// @Produce json
// @Param id path string true "Order item ID"
// @Success 200 {object} response.Envelope
// @Router /order-items/{id}/rejections [get]
// @Security BearerAuth
func (h *SectionHandler) Rejections(c *gin.Context) {
	rejections, err := h.service.Rejections(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rejections, nil)
}
