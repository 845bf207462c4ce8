package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/models"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
)

// CreateGoalInput defines the attributes accepted when creating a goal.
type CreateGoalInput struct {
	AccountID            *uint
	Name                 string
	ImageURL             string
	TargetAmount         decimal.Decimal
	CurrentAmount        decimal.Decimal
	TargetCompletionDate *time.Time
}

// UpdateGoalInput carries optional goal updates; nil fields are untouched.
type UpdateGoalInput struct {
	Name                 *string
	ImageURL             *string
	TargetAmount         *decimal.Decimal
	CurrentAmount        *decimal.Decimal
	TargetCompletionDate *time.Time
	State                *string
}

// GoalService manages savings and payoff goals. The two vendor collections
// share one table, split by goal type.
type GoalService struct {
	db *gorm.DB
}

// NewGoalService constructs a GoalService.
func NewGoalService(db *gorm.DB) (*GoalService, error) {
	if db == nil {
		return nil, errors.New("goal service: db is required")
	}
	return &GoalService{db: db}, nil
}

// List returns the user's goals of one type, newest first.
func (s *GoalService) List(ctx context.Context, userID uint, goalType string) ([]models.Goal, error) {
	ctx = ensureContext(ctx)

	if err := validateGoalType(goalType); err != nil {
		return nil, err
	}

	var rows []models.Goal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND goal_type = ?", userID, goalType).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("goal service: list goals: %w", err)
	}
	return rows, nil
}

// Get loads one goal scoped to the user and type.
func (s *GoalService) Get(ctx context.Context, userID, goalID uint, goalType string) (*models.Goal, error) {
	ctx = ensureContext(ctx)

	if err := validateGoalType(goalType); err != nil {
		return nil, err
	}

	var goal models.Goal
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND goal_type = ?", goalID, userID, goalType).
		First(&goal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("goal service: load goal: %w", err)
	}
	return &goal, nil
}

// Create persists a goal of the given type in the active state.
func (s *GoalService) Create(ctx context.Context, userID uint, goalType string, input CreateGoalInput) (*models.Goal, error) {
	ctx = ensureContext(ctx)

	if err := validateGoalType(goalType); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("goal name is required")
	}
	if input.TargetAmount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewBadRequest("target amount must be positive")
	}

	if input.AccountID != nil {
		var account models.Account
		err := s.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", *input.AccountID, userID).
			First(&account).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewBadRequest("account does not exist")
			}
			return nil, fmt.Errorf("goal service: load account: %w", err)
		}
	}

	goal := models.Goal{
		UserID:               userID,
		AccountID:            input.AccountID,
		GoalType:             goalType,
		Name:                 name,
		ImageURL:             strings.TrimSpace(input.ImageURL),
		TargetAmount:         input.TargetAmount,
		CurrentAmount:        input.CurrentAmount,
		TargetCompletionDate: input.TargetCompletionDate,
		State:                models.GoalStateActive,
	}
	if err := s.db.WithContext(ctx).Create(&goal).Error; err != nil {
		return nil, fmt.Errorf("goal service: create goal: %w", err)
	}
	return &goal, nil
}

// Update applies the non-nil fields of input to a goal.
func (s *GoalService) Update(ctx context.Context, userID, goalID uint, goalType string, input UpdateGoalInput) (*models.Goal, error) {
	ctx = ensureContext(ctx)

	goal, err := s.Get(ctx, userID, goalID, goalType)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("goal name cannot be empty")
		}
		updates["name"] = name
	}
	if input.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*input.ImageURL)
	}
	if input.TargetAmount != nil {
		if input.TargetAmount.LessThanOrEqual(decimal.Zero) {
			return nil, apperrors.NewBadRequest("target amount must be positive")
		}
		updates["target_amount"] = *input.TargetAmount
	}
	if input.CurrentAmount != nil {
		updates["current_amount"] = *input.CurrentAmount
	}
	if input.TargetCompletionDate != nil {
		updates["target_completion_date"] = *input.TargetCompletionDate
	}
	if input.State != nil {
		state := strings.TrimSpace(*input.State)
		if state != models.GoalStateActive && state != models.GoalStateArchived {
			return nil, apperrors.NewBadRequest("unknown goal state")
		}
		updates["state"] = state
	}
	if len(updates) == 0 {
		return goal, nil
	}

	if err := s.db.WithContext(ctx).Model(goal).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("goal service: update goal: %w", err)
	}
	return goal, nil
}

// Delete soft-deletes a goal owned by the user.
func (s *GoalService) Delete(ctx context.Context, userID, goalID uint, goalType string) error {
	ctx = ensureContext(ctx)

	if err := validateGoalType(goalType); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND goal_type = ?", goalID, userID, goalType).
		Delete(&models.Goal{})
	if result.Error != nil {
		return fmt.Errorf("goal service: delete goal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func validateGoalType(goalType string) error {
	switch goalType {
	case models.GoalTypeSavings, models.GoalTypePayoff:
		return nil
	default:
		return apperrors.NewBadRequest("unknown goal type")
	}
}
