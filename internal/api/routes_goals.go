package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tiles-dev/pfm-sim/internal/handlers"
)

// Savings and payoff goals share one handler type but expose separate route
// trees, mirroring the vendor's split resources.
func registerGoalRoutes(api *gin.RouterGroup, savings, payoff *handlers.GoalHandler) {
	savingsGoals := api.Group("/users/:userId/savings_goals")
	{
		savingsGoals.GET("", savings.List)
		savingsGoals.POST("", savings.Create)
		savingsGoals.GET("/:id", savings.Get)
		savingsGoals.PUT("/:id", savings.Update)
		savingsGoals.DELETE("/:id", savings.Delete)
	}

	payoffGoals := api.Group("/users/:userId/payoff_goals")
	{
		payoffGoals.GET("", payoff.List)
		payoffGoals.POST("", payoff.Create)
		payoffGoals.GET("/:id", payoff.Get)
		payoffGoals.PUT("/:id", payoff.Update)
		payoffGoals.DELETE("/:id", payoff.Delete)
	}
}
