package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tiles-dev/pfm-sim/internal/handlers"
)

func registerAlertRoutes(api *gin.RouterGroup, alerts *handlers.AlertHandler, notifications *handlers.NotificationHandler) {
	alertGroup := api.Group("/users/:userId/alerts")
	{
		alertGroup.GET("", alerts.List)
		alertGroup.POST("", alerts.Create)
		alertGroup.POST("/evaluate", alerts.Evaluate)
		alertGroup.GET("/:id", alerts.Get)
		alertGroup.PUT("/:id", alerts.Update)
		alertGroup.DELETE("/:id", alerts.Delete)

		alertGroup.GET("/notifications", notifications.List)
		alertGroup.GET("/notifications/:id", notifications.Get)
		alertGroup.PUT("/notifications/:id", notifications.MarkRead)
		alertGroup.DELETE("/notifications/:id", notifications.Delete)
	}
}
