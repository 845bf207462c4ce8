package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// NotificationHandler exposes the vendor-shaped alert notification endpoints.
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(db *gorm.DB) (*NotificationHandler, error) {
	notifications, err := services.NewNotificationService(db)
	if err != nil {
		return nil, err
	}
	return &NotificationHandler{notifications: notifications}, nil
}

// List returns the user's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	input := services.ListNotificationsInput{
		UnreadOnly: c.Query("unread") == "true",
		Limit:      parseIntQuery(c, "per_page", 25),
	}
	page := parseIntQuery(c, "page", 1)
	if page > 1 {
		input.Offset = (page - 1) * input.Limit
	}

	rows, total, err := h.notifications.List(requestContext(c), userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": rows,
		"meta": response.Meta{
			CurrentPage: page,
			PerPage:     input.Limit,
			TotalCount:  int(total),
			TotalPages:  pageCount(int(total), input.Limit),
		},
	})
}

// Get returns one notification.
func (h *NotificationHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	notificationID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	notification, err := h.notifications.Get(requestContext(c), userID, notificationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": []any{notification}})
}

// MarkRead flags a notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	notificationID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	notification, err := h.notifications.MarkRead(requestContext(c), userID, notificationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": []any{notification}})
}

// Delete removes a notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	notificationID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.Delete(requestContext(c), userID, notificationID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
