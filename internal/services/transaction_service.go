package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	"github.com/tiles-dev/pfm-sim/internal/models"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
	"github.com/tiles-dev/pfm-sim/pkg/logger"
)

// ListTransactionsInput defines filters for querying a user's transactions.
type ListTransactionsInput struct {
	AccountID *uint
	Query     string
	Begin     *time.Time
	End       *time.Time
	Limit     int
	Offset    int
}

// CreateTransactionInput defines the attributes accepted when creating a
// transaction. Amounts are signed: debits negative, credits positive.
type CreateTransactionInput struct {
	AccountID       uint
	Nickname        string
	OriginalName    string
	Amount          decimal.Decimal
	TransactionType string
	MerchantName    string
	PostedAt        time.Time
	TransactedAt    *time.Time
	Tags            []string
}

// UpdateTransactionInput carries optional updates; nil fields are untouched.
type UpdateTransactionInput struct {
	Nickname *string
	Tags     []string
}

// TransactionService manages account transactions. Creating a transaction
// triggers an alert evaluation pass for the owning user so threshold and
// merchant alerts react without waiting for the periodic run.
type TransactionService struct {
	db        *gorm.DB
	evaluator *alerts.Evaluator
	log       *zap.Logger
}

// NewTransactionService constructs a TransactionService. The evaluator is
// optional; without one, alerts only fire on the scheduled pass.
func NewTransactionService(db *gorm.DB, evaluator *alerts.Evaluator) (*TransactionService, error) {
	if db == nil {
		return nil, errors.New("transaction service: db is required")
	}
	return &TransactionService{
		db:        db,
		evaluator: evaluator,
		log:       logger.WithModule("transactions"),
	}, nil
}

// List returns the user's transactions matching the filters, newest first.
func (s *TransactionService) List(ctx context.Context, userID uint, input ListTransactionsInput) ([]models.Transaction, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("user_id = ?", userID)

	if input.AccountID != nil {
		query = query.Where("account_id = ?", *input.AccountID)
	}
	if q := strings.TrimSpace(input.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(merchant_name) LIKE ? OR LOWER(original_name) LIKE ? OR LOWER(nickname) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if input.Begin != nil {
		query = query.Where("posted_at >= ?", *input.Begin)
	}
	if input.End != nil {
		query = query.Where("posted_at <= ?", *input.End)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("transaction service: count transactions: %w", err)
	}

	var rows []models.Transaction
	err := query.
		Order("posted_at DESC").
		Limit(clampLimit(input.Limit, 25, 500)).
		Offset(maxInt(0, input.Offset)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("transaction service: list transactions: %w", err)
	}
	return rows, total, nil
}

// Get loads one transaction scoped to the user.
func (s *TransactionService) Get(ctx context.Context, userID, transactionID uint) (*models.Transaction, error) {
	ctx = ensureContext(ctx)

	var transaction models.Transaction
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("transaction service: load transaction: %w", err)
	}
	return &transaction, nil
}

// Create persists a transaction against one of the user's accounts and runs an
// alert evaluation pass. Evaluation failures are logged, never surfaced: the
// write already succeeded.
func (s *TransactionService) Create(ctx context.Context, userID uint, input CreateTransactionInput) (*models.Transaction, error) {
	ctx = ensureContext(ctx)

	var account models.Account
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", input.AccountID, userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewBadRequest("account does not exist")
		}
		return nil, fmt.Errorf("transaction service: load account: %w", err)
	}

	tags, err := encodeTagList(input.Tags)
	if err != nil {
		return nil, err
	}

	postedAt := input.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}

	transaction := models.Transaction{
		UserID:          userID,
		AccountID:       account.ID,
		Nickname:        strings.TrimSpace(input.Nickname),
		OriginalName:    strings.TrimSpace(input.OriginalName),
		Amount:          input.Amount,
		TransactionType: defaultIfEmpty(strings.TrimSpace(input.TransactionType), transactionTypeFor(input.Amount)),
		MerchantName:    strings.TrimSpace(input.MerchantName),
		PostedAt:        postedAt,
		TransactedAt:    input.TransactedAt,
		Tags:            tags,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}
		newBalance := account.Balance.Add(input.Amount)
		return tx.Model(&account).Update("balance", newBalance).Error
	})
	if err != nil {
		return nil, fmt.Errorf("transaction service: create transaction: %w", err)
	}

	if s.evaluator != nil {
		if _, err := s.evaluator.Evaluate(ctx, userID); err != nil {
			s.log.Warn("post-create alert evaluation failed",
				zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return &transaction, nil
}

// Update applies the non-nil fields of input to a transaction. Only
// user-editable fields (nickname, tags) can change; posted amounts are
// immutable, matching the vendor API.
func (s *TransactionService) Update(ctx context.Context, userID, transactionID uint, input UpdateTransactionInput) (*models.Transaction, error) {
	ctx = ensureContext(ctx)

	transaction, err := s.Get(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Nickname != nil {
		updates["nickname"] = strings.TrimSpace(*input.Nickname)
	}
	if input.Tags != nil {
		tags, err := encodeTagList(input.Tags)
		if err != nil {
			return nil, err
		}
		updates["tags"] = tags
	}
	if len(updates) == 0 {
		return transaction, nil
	}

	if err := s.db.WithContext(ctx).Model(transaction).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("transaction service: update transaction: %w", err)
	}
	return transaction, nil
}

// Delete soft-deletes a transaction owned by the user.
func (s *TransactionService) Delete(ctx context.Context, userID, transactionID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", transactionID, userID).
		Delete(&models.Transaction{})
	if result.Error != nil {
		return fmt.Errorf("transaction service: delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func encodeTagList(tags []string) (datatypes.JSON, error) {
	cleaned := normaliseTagNames(tags)
	if cleaned == nil {
		cleaned = []string{}
	}
	data, err := json.Marshal(cleaned)
	if err != nil {
		return nil, fmt.Errorf("transaction service: encode tags: %w", err)
	}
	return datatypes.JSON(data), nil
}

func transactionTypeFor(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "debit"
	}
	return "credit"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
