package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tiles-dev/pfm-sim/internal/handlers"
)

func registerCashflowRoutes(api *gin.RouterGroup, handler *handlers.CashflowHandler) {
	cashflow := api.Group("/users/:userId/cashflow")
	{
		cashflow.GET("", handler.Projection)

		cashflow.GET("/bills", handler.ListBills)
		cashflow.POST("/bills", handler.CreateBill)
		cashflow.PUT("/bills/:id", handler.UpdateBill)
		cashflow.DELETE("/bills/:id", handler.DeleteBill)

		cashflow.GET("/incomes", handler.ListIncomes)
		cashflow.POST("/incomes", handler.CreateIncome)
		cashflow.PUT("/incomes/:id", handler.UpdateIncome)
		cashflow.DELETE("/incomes/:id", handler.DeleteIncome)

		cashflow.GET("/events", handler.ListEvents)
		cashflow.PUT("/events/:id", handler.UpdateEvent)
		cashflow.DELETE("/events/:id", handler.DeleteEvent)
	}
}
