package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bbec/class-ops-api/internal/service"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
	"github.com/bbec/class-ops-api/pkg/response"
)

// SessionHandler exposes the class session lifecycle endpoints.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Assign godoc
// @Summary Assign a class session to a teacher
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body service.AssignSessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Assign(c *gin.Context) {
	var req service.AssignSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid session payload"))
		return
	}
	session, err := h.sessions.Assign(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// ListPending godoc
// @Summary List pending sessions
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/pending [get]
func (h *SessionHandler) ListPending(c *gin.Context) {
	sessions, err := h.sessions.ListPending(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"count": len(sessions)})
}

// Complete godoc
// @Summary Mark a pending session completed by its teacher
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/complete [put]
func (h *SessionHandler) Complete(c *gin.Context) {
	session, err := h.sessions.Complete(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// ConfirmationQueue godoc
// @Summary List teacher-completed sessions awaiting confirmation
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/confirmation-queue [get]
func (h *SessionHandler) ConfirmationQueue(c *gin.Context) {
	sessions, err := h.sessions.ConfirmationQueue(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"count": len(sessions)})
}

// Confirm godoc
// @Summary Confirm a teacher-completed session
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/confirm [put]
func (h *SessionHandler) Confirm(c *gin.Context) {
	session, err := h.sessions.Confirm(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// ListCompleted godoc
// @Summary List confirmed sessions
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Param courseId query string false "Course ID"
// @Param teacherId query string false "Teacher ID"
// @Param tpin query string false "Teacher TPIN"
// @Param start query string false "Start date YYYY-MM-DD"
// @Param end query string false "End date YYYY-MM-DD (inclusive)"
// @Success 200 {object} response.Envelope
// @Router /sessions/completed [get]
func (h *SessionHandler) ListCompleted(c *gin.Context) {
	req := service.ListCompletedRequest{
		CourseID:  c.Query("courseId"),
		TeacherID: c.Query("teacherId"),
		Tpin:      c.Query("tpin"),
		Start:     c.Query("start"),
		End:       c.Query("end"),
	}
	sessions, err := h.sessions.ListCompleted(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"count": len(sessions)})
}

// ListUnpaid godoc
// @Summary List confirmed but unpaid sessions
// @Tags Sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/unpaid [get]
func (h *SessionHandler) ListUnpaid(c *gin.Context) {
	sessions, err := h.sessions.ListUnpaid(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"count": len(sessions)})
}

type setPaidRequest struct {
	Paid bool `json:"paid"`
}

// SetPaid godoc
// @Summary Toggle the paid flag on a session
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body setPaidRequest true "Paid flag"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/paid [put]
func (h *SessionHandler) SetPaid(c *gin.Context) {
	var req setPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid paid payload"))
		return
	}
	session, err := h.sessions.SetPaid(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.Paid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

type bulkPaidRequest struct {
	IDs []string `json:"ids"`
}

// BulkMarkPaid godoc
// @Summary Mark many sessions paid
// @Tags Sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body bulkPaidRequest false "Session IDs; empty marks every unpaid confirmed session"
// @Success 200 {object} response.Envelope
// @Router /sessions/paid [put]
func (h *SessionHandler) BulkMarkPaid(c *gin.Context) {
	var req bulkPaidRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
			return
		}
	}
	modified, err := h.sessions.BulkMarkPaid(c.Request.Context(), claimsFromContext(c), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"modified": modified})
}

// Delete godoc
// @Summary Delete a pending session
// @Tags Sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
