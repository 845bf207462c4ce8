package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tiles-dev/pfm-sim/internal/handlers"
)

func registerAccountRoutes(api *gin.RouterGroup, handler *handlers.AccountHandler) {
	accounts := api.Group("/users/:userId/accounts")
	{
		accounts.GET("", handler.List)
		accounts.POST("", handler.Create)
		accounts.GET("/:id", handler.Get)
		accounts.PUT("/:id", handler.Update)
		accounts.PUT("/:id/archive", handler.Archive)
		accounts.DELETE("/:id", handler.Delete)
	}
}
