package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// Health returns a status payload useful for readiness checks, including
// database connectivity.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				dbStatus = "unavailable"
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "database": dbStatus})
	}
}
