package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tiles-dev/pfm-sim/internal/database/testutil"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
)

func TestBudgetSpentTracksTaggedDebits(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "budget-user")
	account := seedAccount(t, db, user.ID, "500.00")

	budgets, err := NewBudgetService(db)
	require.NoError(t, err)
	transactions, err := NewTransactionService(db, nil)
	require.NoError(t, err)

	budget, err := budgets.Create(context.Background(), user.ID, CreateBudgetInput{
		Name:         "Dining",
		BudgetAmount: decimal.RequireFromString("200.00"),
		Month:        4,
		Year:         2024,
		TagNames:     []string{"Dining"},
	})
	require.NoError(t, err)

	posted := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	_, err = transactions.Create(context.Background(), user.ID, CreateTransactionInput{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("-45.00"),
		PostedAt:  posted,
		Tags:      []string{"Dining"},
	})
	require.NoError(t, err)

	// Credit and off-tag rows must not count.
	_, err = transactions.Create(context.Background(), user.ID, CreateTransactionInput{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("100.00"),
		PostedAt:  posted,
		Tags:      []string{"Dining"},
	})
	require.NoError(t, err)
	_, err = transactions.Create(context.Background(), user.ID, CreateTransactionInput{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("-30.00"),
		PostedAt:  posted,
		Tags:      []string{"Travel"},
	})
	require.NoError(t, err)

	reloaded, err := budgets.Get(context.Background(), user.ID, budget.ID)
	require.NoError(t, err)
	require.Equal(t, "45.00", reloaded.Spent.StringFixed(2))
}

func TestBudgetValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "budget-valid-user")
	svc, err := NewBudgetService(db)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), user.ID, CreateBudgetInput{Name: " "})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), user.ID, CreateBudgetInput{
		Name:         "Negative",
		BudgetAmount: decimal.RequireFromString("-5.00"),
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), user.ID, CreateBudgetInput{
		Name: "Bad month", Month: 13, Year: 2024,
	})
	require.Error(t, err)
}

func TestBudgetDeleteScopedToOwner(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	owner := seedUser(t, db, "budget-owner")
	other := seedUser(t, db, "budget-other")
	svc, err := NewBudgetService(db)
	require.NoError(t, err)

	budget, err := svc.Create(context.Background(), owner.ID, CreateBudgetInput{
		Name: "Groceries", Month: 1, Year: 2024,
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), other.ID, budget.ID), apperrors.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), owner.ID, budget.ID))
}
