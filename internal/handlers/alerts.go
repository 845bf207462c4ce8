package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	"github.com/tiles-dev/pfm-sim/internal/services"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

// AlertHandler exposes the vendor-shaped alert endpoints plus the manual
// evaluation trigger.
type AlertHandler struct {
	alerts    *services.AlertService
	evaluator *alerts.Evaluator
}

// NewAlertHandler constructs an alert handler.
func NewAlertHandler(db *gorm.DB, evaluator *alerts.Evaluator) (*AlertHandler, error) {
	service, err := services.NewAlertService(db)
	if err != nil {
		return nil, err
	}
	return &AlertHandler{alerts: service, evaluator: evaluator}, nil
}

// List returns the user's alerts.
func (h *AlertHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rows, err := h.alerts.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": rows})
}

// Get returns one alert.
func (h *AlertHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	alertID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	alert, err := h.alerts.Get(requestContext(c), userID, alertID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": []any{alert}})
}

// Create adds an alert rule.
func (h *AlertHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var payload struct {
		AlertType     string          `json:"alert_type" validate:"required"`
		Conditions    json.RawMessage `json:"conditions" validate:"required"`
		EmailDelivery *bool           `json:"email_delivery"`
		SMSDelivery   *bool           `json:"sms_delivery"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	alert, err := h.alerts.Create(requestContext(c), userID, services.CreateAlertInput{
		AlertType:     payload.AlertType,
		Conditions:    payload.Conditions,
		EmailDelivery: payload.EmailDelivery,
		SMSDelivery:   payload.SMSDelivery,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"alerts": []any{alert}})
}

// Update modifies an alert rule.
func (h *AlertHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	alertID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var payload struct {
		Conditions    json.RawMessage `json:"conditions"`
		EmailDelivery *bool           `json:"email_delivery"`
		SMSDelivery   *bool           `json:"sms_delivery"`
		Active        *bool           `json:"active"`
	}
	if !bindAndValidate(c, &payload) {
		return
	}

	alert, err := h.alerts.Update(requestContext(c), userID, alertID, services.UpdateAlertInput{
		Conditions:    payload.Conditions,
		EmailDelivery: payload.EmailDelivery,
		SMSDelivery:   payload.SMSDelivery,
		Active:        payload.Active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": []any{alert}})
}

// Delete removes an alert rule.
func (h *AlertHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	alertID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.alerts.Delete(requestContext(c), userID, alertID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Evaluate runs the alert evaluator for the user on demand and returns the
// pass summary. Useful for exercising alert flows from the frontend without
// waiting for the scheduler.
func (h *AlertHandler) Evaluate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := h.evaluator.Evaluate(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	failures := make([]gin.H, 0, len(summary.Errors))
	for _, failure := range summary.Errors {
		failures = append(failures, gin.H{
			"alert_id":   failure.AlertID,
			"alert_type": failure.AlertType,
			"message":    failure.Message,
		})
	}
	response.Success(c, http.StatusOK, gin.H{
		"evaluated": summary.Evaluated,
		"fired":     summary.Fired,
		"errors":    failures,
	})
}
