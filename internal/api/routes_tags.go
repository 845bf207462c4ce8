package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tiles-dev/pfm-sim/internal/handlers"
)

func registerTagRoutes(api *gin.RouterGroup, handler *handlers.TagHandler) {
	tags := api.Group("/users/:userId/tags")
	{
		tags.GET("", handler.ListForUser)
		tags.PUT("", handler.Replace)
	}
}
