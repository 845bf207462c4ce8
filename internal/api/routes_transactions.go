package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tiles-dev/pfm-sim/internal/handlers"
)

func registerTransactionRoutes(api *gin.RouterGroup, handler *handlers.TransactionHandler) {
	transactions := api.Group("/users/:userId/transactions")
	{
		transactions.GET("", handler.List)
		transactions.POST("", handler.Create)
		transactions.GET("/:id", handler.Get)
		transactions.PUT("/:id", handler.Update)
		transactions.DELETE("/:id", handler.Delete)
	}
}
