package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	"github.com/tiles-dev/pfm-sim/internal/models"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
)

// CreateAlertInput defines the attributes accepted when creating an alert.
// Conditions must decode against the alert type's condition shape.
type CreateAlertInput struct {
	AlertType     string
	Conditions    json.RawMessage
	EmailDelivery *bool
	SMSDelivery   *bool
}

// UpdateAlertInput carries optional alert updates; nil fields are untouched.
type UpdateAlertInput struct {
	Conditions    json.RawMessage
	EmailDelivery *bool
	SMSDelivery   *bool
	Active        *bool
}

// AlertService manages user alert rules. Condition payloads are validated at
// write time so the evaluator never sees an undecodable blob.
type AlertService struct {
	db *gorm.DB
}

// NewAlertService constructs an AlertService.
func NewAlertService(db *gorm.DB) (*AlertService, error) {
	if db == nil {
		return nil, errors.New("alert service: db is required")
	}
	return &AlertService{db: db}, nil
}

// List returns the user's alerts, newest first.
func (s *AlertService) List(ctx context.Context, userID uint) ([]models.Alert, error) {
	ctx = ensureContext(ctx)

	var rows []models.Alert
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("alert service: list alerts: %w", err)
	}
	return rows, nil
}

// Get loads one alert scoped to the user.
func (s *AlertService) Get(ctx context.Context, userID, alertID uint) (*models.Alert, error) {
	ctx = ensureContext(ctx)

	var alert models.Alert
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", alertID, userID).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("alert service: load alert: %w", err)
	}
	return &alert, nil
}

// Create persists an alert after validating its condition payload.
func (s *AlertService) Create(ctx context.Context, userID uint, input CreateAlertInput) (*models.Alert, error) {
	ctx = ensureContext(ctx)

	alertType := strings.TrimSpace(input.AlertType)
	if !validAlertType(alertType) {
		return nil, apperrors.NewBadRequest("unknown alert type")
	}
	if _, err := alerts.DecodeCondition(alertType, input.Conditions); err != nil {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid conditions: %v", err))
	}

	alert := models.Alert{
		UserID:        userID,
		AlertType:     alertType,
		Conditions:    datatypes.JSON(input.Conditions),
		EmailDelivery: input.EmailDelivery == nil || *input.EmailDelivery,
		SMSDelivery:   input.SMSDelivery != nil && *input.SMSDelivery,
		Active:        true,
	}
	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, fmt.Errorf("alert service: create alert: %w", err)
	}
	return &alert, nil
}

// Update applies the non-nil fields of input to an alert. The alert type is
// immutable; replacing the rule means deleting and recreating it.
func (s *AlertService) Update(ctx context.Context, userID, alertID uint, input UpdateAlertInput) (*models.Alert, error) {
	ctx = ensureContext(ctx)

	alert, err := s.Get(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Conditions != nil {
		if _, err := alerts.DecodeCondition(alert.AlertType, input.Conditions); err != nil {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid conditions: %v", err))
		}
		updates["conditions"] = datatypes.JSON(input.Conditions)
	}
	if input.EmailDelivery != nil {
		updates["email_delivery"] = *input.EmailDelivery
	}
	if input.SMSDelivery != nil {
		updates["sms_delivery"] = *input.SMSDelivery
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if len(updates) == 0 {
		return alert, nil
	}

	if err := s.db.WithContext(ctx).Model(alert).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("alert service: update alert: %w", err)
	}
	return alert, nil
}

// Delete soft-deletes an alert. Notifications referencing it stay resolvable
// because deletion never removes the row.
func (s *AlertService) Delete(ctx context.Context, userID, alertID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", alertID, userID).
		Delete(&models.Alert{})
	if result.Error != nil {
		return fmt.Errorf("alert service: delete alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func validAlertType(alertType string) bool {
	for _, known := range models.AlertTypes {
		if alertType == known {
			return true
		}
	}
	return false
}
