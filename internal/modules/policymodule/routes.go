package policymodule

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all policy module routes
func RegisterRoutes(r *gin.Engine, handler *APIHandler) {
	api := r.Group("/api/policy")
	{
		// Decision endpoint
		api.POST("/decide", handler.HandleDecide)

		// Outcome lifecycle
		api.POST("/outcomes", handler.HandlePlaybackStart)
		api.PUT("/outcomes/:outcomeId/stop", handler.HandlePlaybackStop)

		// Client profiles
		api.GET("/clients/:deviceId", handler.HandleGetClient)
		api.POST("/clients/:deviceId/recalibrate", handler.HandleRecalibrate)

		// Statistics
		api.GET("/stats", handler.HandleStats)
	}
}
