package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/models"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
)

// CreateAccountInput defines the attributes accepted when creating an account.
type CreateAccountInput struct {
	Name              string
	DisplayName       string
	AccountType       string
	Balance           decimal.Decimal
	IncludeInNetworth *bool
	FinstitutionName  string
}

// UpdateAccountInput carries optional account updates; nil fields are untouched.
type UpdateAccountInput struct {
	Name              *string
	DisplayName       *string
	Balance           *decimal.Decimal
	IncludeInNetworth *bool
}

// AccountService manages a user's linked financial accounts.
type AccountService struct {
	db *gorm.DB
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	return &AccountService{db: db}, nil
}

// List returns the user's accounts, newest first.
func (s *AccountService) List(ctx context.Context, userID uint) ([]models.Account, error) {
	ctx = ensureContext(ctx)

	var rows []models.Account
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("account service: list accounts: %w", err)
	}
	return rows, nil
}

// Get loads one account scoped to the user.
func (s *AccountService) Get(ctx context.Context, userID, accountID uint) (*models.Account, error) {
	ctx = ensureContext(ctx)

	var account models.Account
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", accountID, userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("account service: load account: %w", err)
	}
	return &account, nil
}

// Create persists a new account in the active state.
func (s *AccountService) Create(ctx context.Context, userID uint, input CreateAccountInput) (*models.Account, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("account name is required")
	}

	account := models.Account{
		UserID:            userID,
		Name:              name,
		DisplayName:       strings.TrimSpace(input.DisplayName),
		AccountType:       defaultIfEmpty(strings.TrimSpace(input.AccountType), "checking"),
		Balance:           input.Balance,
		State:             models.AccountStateActive,
		IncludeInNetworth: input.IncludeInNetworth == nil || *input.IncludeInNetworth,
		FinstitutionName:  strings.TrimSpace(input.FinstitutionName),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, fmt.Errorf("account service: create account: %w", err)
	}
	return &account, nil
}

// Update applies the non-nil fields of input to an account.
func (s *AccountService) Update(ctx context.Context, userID, accountID uint, input UpdateAccountInput) (*models.Account, error) {
	ctx = ensureContext(ctx)

	account, err := s.Get(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("account name cannot be empty")
		}
		updates["name"] = name
	}
	if input.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*input.DisplayName)
	}
	if input.Balance != nil {
		updates["balance"] = *input.Balance
	}
	if input.IncludeInNetworth != nil {
		updates["include_in_networth"] = *input.IncludeInNetworth
	}
	if len(updates) == 0 {
		return account, nil
	}

	if err := s.db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("account service: update account: %w", err)
	}
	return account, nil
}

// Archive moves an account out of active listings without deleting its
// transaction history.
func (s *AccountService) Archive(ctx context.Context, userID, accountID uint) (*models.Account, error) {
	return s.setState(ctx, userID, accountID, models.AccountStateArchived)
}

func (s *AccountService) setState(ctx context.Context, userID, accountID uint, state string) (*models.Account, error) {
	ctx = ensureContext(ctx)

	account, err := s.Get(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(account).Update("state", state).Error; err != nil {
		return nil, fmt.Errorf("account service: set state: %w", err)
	}
	return account, nil
}

// Delete soft-deletes an account owned by the user.
func (s *AccountService) Delete(ctx context.Context, userID, accountID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", accountID, userID).
		Delete(&models.Account{})
	if result.Error != nil {
		return fmt.Errorf("account service: delete account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
