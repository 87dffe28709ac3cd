package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bbec/class-ops-api/internal/service"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
	"github.com/bbec/class-ops-api/pkg/response"
)

// UploadHandler exposes the video upload task endpoints.
type UploadHandler struct {
	uploads *service.UploadService
}

// NewUploadHandler constructs handler.
func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// ListPending godoc
// @Summary List upload tasks not yet fulfilled
// @Tags Uploads
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /uploads/pending [get]
func (h *UploadHandler) ListPending(c *gin.Context) {
	tasks, err := h.uploads.ListPending(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, map[string]interface{}{"count": len(tasks)})
}

// ListUploaded godoc
// @Summary List fulfilled upload tasks
// @Tags Uploads
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /uploads/done [get]
func (h *UploadHandler) ListUploaded(c *gin.Context) {
	tasks, err := h.uploads.ListUploaded(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, map[string]interface{}{"count": len(tasks)})
}

type markUploadedRequest struct {
	VideoURL string `json:"video_url"`
}

// MarkUploaded godoc
// @Summary Mark an upload task fulfilled
// @Tags Uploads
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body markUploadedRequest false "Optional video URL"
// @Success 200 {object} response.Envelope
// @Router /uploads/{id}/uploaded [put]
func (h *UploadHandler) MarkUploaded(c *gin.Context) {
	var req markUploadedRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
			return
		}
	}
	task, err := h.uploads.MarkUploaded(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.VideoURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task)
}

// MarkNotUploaded godoc
// @Summary Revert an upload task to not uploaded
// @Tags Uploads
// @Security BearerAuth
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /uploads/{id}/not-uploaded [put]
func (h *UploadHandler) MarkNotUploaded(c *gin.Context) {
	task, err := h.uploads.MarkNotUploaded(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task)
}

// Reconcile godoc
// @Summary Backfill upload tasks for confirmed sessions missing one
// @Tags Uploads
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /uploads/reconcile [post]
func (h *UploadHandler) Reconcile(c *gin.Context) {
	created, err := h.uploads.ReconcileAll(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"created": created})
}

// Delete godoc
// @Summary Delete an upload task
// @Tags Uploads
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 204
// @Router /uploads/{id} [delete]
func (h *UploadHandler) Delete(c *gin.Context) {
	if err := h.uploads.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
