package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tiles-dev/pfm-sim/internal/middleware"
	"github.com/tiles-dev/pfm-sim/pkg/errors"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID reads the authenticated user id and checks it against the
// :userId path segment. The vendor addresses users either by numeric id or by
// partner customer id; non-numeric segments are left to the per-user query
// scoping that every service applies.
func currentUserID(c *gin.Context) (uint, bool) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, errors.ErrUnauthorized)
		return 0, false
	}
	if param := strings.TrimSpace(c.Param("userId")); param != "" {
		if pathID, err := strconv.ParseUint(param, 10, 64); err == nil && uint(pathID) != userID {
			response.Error(c, errors.ErrForbidden)
			return 0, false
		}
	}
	return userID, true
}
