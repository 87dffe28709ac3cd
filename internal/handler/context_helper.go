package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bbec/class-ops-api/internal/middleware"
	"github.com/bbec/class-ops-api/internal/models"
)

// claimsFromContext returns the authenticated claims, or nil for anonymous
// requests. Services translate nil claims into a 401.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	if claims, ok := c.Get(middleware.ContextUserKey); ok {
		if jwtClaims, valid := claims.(*models.JWTClaims); valid {
			return jwtClaims
		}
	}
	return nil
}
