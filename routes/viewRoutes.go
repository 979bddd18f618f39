package routes

import (
	"gramaalert-be/controllers"

	"github.com/gin-gonic/gin"
)

// ViewRoutes sets up navigation, notices and the location helper.
func ViewRoutes(r *gin.Engine, vc *controllers.ViewController) {
	api := r.Group("/api")
	{
		api.GET("/views/:view", vc.Navigate)
		api.GET("/notices", vc.Notices)
		api.GET("/locations/suggest", vc.SuggestLocation)
	}
}
