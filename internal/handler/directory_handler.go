package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bbec/class-ops-api/internal/models"
	"github.com/bbec/class-ops-api/internal/service"
	"github.com/bbec/class-ops-api/pkg/response"
)

// DirectoryHandler exposes the course and staff picker endpoints.
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// Courses godoc
// @Summary List courses
// @Tags Directory
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *DirectoryHandler) Courses(c *gin.Context) {
	courses, err := h.directory.Courses(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, map[string]interface{}{"count": len(courses)})
}

// Staff godoc
// @Summary List active staff by role
// @Tags Directory
// @Security BearerAuth
// @Produce json
// @Param role query string true "ADMIN, TEACHER or EDITOR"
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *DirectoryHandler) Staff(c *gin.Context) {
	role := models.UserRole(strings.ToUpper(c.Query("role")))
	users, err := h.directory.Staff(c.Request.Context(), claimsFromContext(c), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, map[string]interface{}{"count": len(users)})
}
