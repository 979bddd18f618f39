package routes

import (
	"gramaalert-be/controllers"
	"gramaalert-be/middlewares"
	"gramaalert-be/models"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the public issue routes and the official workflow.
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, limiter *middlewares.IssueRateLimiter) {
	issue := r.Group("/api/issues")
	{
		issue.GET("", ic.ListIssues)
		issue.GET("/stream", ic.Stream)
		issue.GET("/:id", ic.GetIssue)
		issue.POST("", middlewares.RequireVerified(), limiter.Handler(), ic.CreateIssue)
	}
	r.GET("/api/dashboard", ic.Dashboard)

	admin := r.Group("/api/admin", middlewares.RequireRole(models.RoleAdmin))
	{
		admin.GET("/issues", ic.AdminListIssues)
		admin.GET("/issues/export", ic.ExportIssues)
		admin.PUT("/issues/:id/status", ic.UpdateStatus)
	}
}
