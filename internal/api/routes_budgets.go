package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tiles-dev/pfm-sim/internal/handlers"
)

func registerBudgetRoutes(api *gin.RouterGroup, handler *handlers.BudgetHandler) {
	budgets := api.Group("/users/:userId/budgets")
	{
		budgets.GET("", handler.List)
		budgets.POST("", handler.Create)
		budgets.GET("/:id", handler.Get)
		budgets.PUT("/:id", handler.Update)
		budgets.DELETE("/:id", handler.Delete)
	}
}
