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

// CreateBudgetInput defines the attributes accepted when creating a budget.
type CreateBudgetInput struct {
	Name         string
	BudgetAmount decimal.Decimal
	Month        int
	Year         int
	TagNames     []string
	ShowOnDash   *bool
}

// UpdateBudgetInput carries optional budget updates; nil fields are untouched.
type UpdateBudgetInput struct {
	Name         *string
	BudgetAmount *decimal.Decimal
	TagNames     []string
	ShowOnDash   *bool
}

// BudgetService manages monthly tag budgets. Spent totals are recomputed from
// the transaction table on read so they never drift from reality.
type BudgetService struct {
	db *gorm.DB
}

// NewBudgetService constructs a BudgetService.
func NewBudgetService(db *gorm.DB) (*BudgetService, error) {
	if db == nil {
		return nil, errors.New("budget service: db is required")
	}
	return &BudgetService{db: db}, nil
}

// List returns the user's budgets with refreshed spent totals.
func (s *BudgetService) List(ctx context.Context, userID uint) ([]models.Budget, error) {
	ctx = ensureContext(ctx)

	var rows []models.Budget
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("year DESC, month DESC, name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("budget service: list budgets: %w", err)
	}

	for i := range rows {
		if err := s.refreshSpent(ctx, &rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Get loads one budget scoped to the user, with a refreshed spent total.
func (s *BudgetService) Get(ctx context.Context, userID, budgetID uint) (*models.Budget, error) {
	ctx = ensureContext(ctx)

	var budget models.Budget
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", budgetID, userID).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("budget service: load budget: %w", err)
	}
	if err := s.refreshSpent(ctx, &budget); err != nil {
		return nil, err
	}
	return &budget, nil
}

// Create persists a budget. A zero month/year defaults to the current month.
func (s *BudgetService) Create(ctx context.Context, userID uint, input CreateBudgetInput) (*models.Budget, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("budget name is required")
	}
	if input.BudgetAmount.IsNegative() {
		return nil, apperrors.NewBadRequest("budget amount cannot be negative")
	}

	month, year := input.Month, input.Year
	if month == 0 || year == 0 {
		now := time.Now().UTC()
		month, year = int(now.Month()), now.Year()
	}
	if month < 1 || month > 12 {
		return nil, apperrors.NewBadRequest("month must be between 1 and 12")
	}

	tagNames, err := encodeTagList(input.TagNames)
	if err != nil {
		return nil, err
	}

	budget := models.Budget{
		UserID:       userID,
		Name:         name,
		BudgetAmount: input.BudgetAmount,
		Month:        month,
		Year:         year,
		ShowOnDash:   input.ShowOnDash == nil || *input.ShowOnDash,
		TagNames:     tagNames,
	}
	if err := s.db.WithContext(ctx).Create(&budget).Error; err != nil {
		return nil, fmt.Errorf("budget service: create budget: %w", err)
	}
	return &budget, nil
}

// Update applies the non-nil fields of input to a budget.
func (s *BudgetService) Update(ctx context.Context, userID, budgetID uint, input UpdateBudgetInput) (*models.Budget, error) {
	ctx = ensureContext(ctx)

	budget, err := s.Get(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("budget name cannot be empty")
		}
		updates["name"] = name
	}
	if input.BudgetAmount != nil {
		if input.BudgetAmount.IsNegative() {
			return nil, apperrors.NewBadRequest("budget amount cannot be negative")
		}
		updates["budget_amount"] = *input.BudgetAmount
	}
	if input.TagNames != nil {
		tagNames, err := encodeTagList(input.TagNames)
		if err != nil {
			return nil, err
		}
		updates["tag_names"] = tagNames
	}
	if input.ShowOnDash != nil {
		updates["show_on_dash"] = *input.ShowOnDash
	}
	if len(updates) == 0 {
		return budget, nil
	}

	if err := s.db.WithContext(ctx).Model(budget).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("budget service: update budget: %w", err)
	}
	return budget, nil
}

// Delete soft-deletes a budget owned by the user.
func (s *BudgetService) Delete(ctx context.Context, userID, budgetID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", budgetID, userID).
		Delete(&models.Budget{})
	if result.Error != nil {
		return fmt.Errorf("budget service: delete budget: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// refreshSpent recomputes the budget's spent column as the absolute sum of the
// month's debits on the budgeted tags and persists it when it changed.
func (s *BudgetService) refreshSpent(ctx context.Context, budget *models.Budget) error {
	names := decodeTagNames(budget.TagNames)
	if len(names) == 0 {
		return nil
	}

	monthStart := time.Date(budget.Year, time.Month(budget.Month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var rows []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND amount < 0 AND posted_at >= ? AND posted_at < ?",
			budget.UserID, monthStart, monthEnd).
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("budget service: sum spending: %w", err)
	}

	spent := decimal.Zero
	for _, row := range rows {
		if transactionHasAnyTag(row, names) {
			spent = spent.Add(row.Amount.Abs())
		}
	}

	if !spent.Equal(budget.Spent) {
		budget.Spent = spent
		if err := s.db.WithContext(ctx).Model(budget).Update("spent", spent).Error; err != nil {
			return fmt.Errorf("budget service: store spent: %w", err)
		}
	}
	return nil
}
