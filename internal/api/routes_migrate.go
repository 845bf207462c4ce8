package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tiles-dev/pfm-sim/internal/handlers"
)

func registerMigrateRoutes(group *gin.RouterGroup, handler *handlers.MigrateHandler) {
	group.POST("/test", handler.Test)
	group.POST("/start", handler.Start)
}
