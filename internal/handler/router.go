package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bbec/class-ops-api/internal/middleware"
	"github.com/bbec/class-ops-api/internal/models"
	"github.com/bbec/class-ops-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth      *AuthHandler
	Sessions  *SessionHandler
	Uploads   *UploadHandler
	Reports   *ReportHandler
	Billing   *BillingHandler
	Directory *DirectoryHandler
}

// RegisterRoutes wires all endpoints under the API prefix. Route-level role
// gates mirror the service policy; the services remain the authority.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	api := r.Group(prefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", middleware.JWT(auth), h.Auth.Logout)
		authGroup.GET("/me", middleware.JWT(auth), h.Auth.Me)
	}
	api.PATCH("/account/password", middleware.JWT(auth), h.Auth.ChangePassword)

	sessions := api.Group("/sessions", middleware.JWT(auth))
	{
		sessions.POST("", middleware.RequireRoles(models.RoleAdmin), h.Sessions.Assign)
		sessions.GET("/pending", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Sessions.ListPending)
		sessions.PUT("/:id/complete", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Sessions.Complete)
		sessions.GET("/confirmation-queue", middleware.RequireRoles(models.RoleAdmin), h.Sessions.ConfirmationQueue)
		sessions.PUT("/:id/confirm", middleware.RequireRoles(models.RoleAdmin), h.Sessions.Confirm)
		sessions.GET("/completed", middleware.RequireRoles(models.RoleAdmin), h.Sessions.ListCompleted)
		sessions.GET("/unpaid", middleware.RequireRoles(models.RoleAdmin), h.Sessions.ListUnpaid)
		sessions.PUT("/:id/paid", middleware.RequireRoles(models.RoleAdmin), h.Sessions.SetPaid)
		sessions.PUT("/paid", middleware.RequireRoles(models.RoleAdmin), h.Sessions.BulkMarkPaid)
		sessions.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Sessions.Delete)
	}

	uploads := api.Group("/uploads", middleware.JWT(auth))
	{
		uploads.GET("/pending", middleware.RequireRoles(models.RoleAdmin, models.RoleEditor), h.Uploads.ListPending)
		uploads.GET("/done", middleware.RequireRoles(models.RoleAdmin, models.RoleEditor), h.Uploads.ListUploaded)
		uploads.PUT("/:id/uploaded", middleware.RequireRoles(models.RoleAdmin, models.RoleEditor), h.Uploads.MarkUploaded)
		uploads.PUT("/:id/not-uploaded", middleware.RequireRoles(models.RoleAdmin, models.RoleEditor), h.Uploads.MarkNotUploaded)
		uploads.POST("/reconcile", middleware.RequireRoles(models.RoleAdmin), h.Uploads.Reconcile)
		uploads.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Uploads.Delete)
	}

	reports := api.Group("/reports", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin))
	{
		reports.GET("/summary", h.Reports.Summary)
		reports.GET("/uploads", h.Reports.UploadedVideos)
	}

	billing := api.Group("/billing", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin))
	{
		billing.POST("/daily", h.Billing.DailyBill)
		billing.POST("/uploads", h.Billing.UploadsBill)
	}

	api.GET("/courses", middleware.JWT(auth), h.Directory.Courses)
	api.GET("/staff", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin), h.Directory.Staff)
}
