package routes

import (
	"gramaalert-be/controllers"
	"gramaalert-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, ac *controllers.AuthController) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", ac.Register)
		auth.POST("/login", ac.Login)
		auth.POST("/logout", ac.Logout)
		auth.GET("/me", middlewares.RequireSignedIn(), ac.Me)
		auth.GET("/verify", ac.Verify)
		auth.POST("/resend-verification", middlewares.RequireSignedIn(), ac.ResendVerification)
	}
}
