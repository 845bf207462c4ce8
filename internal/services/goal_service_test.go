package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tiles-dev/pfm-sim/internal/database/testutil"
	"github.com/tiles-dev/pfm-sim/internal/models"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
)

func TestGoalLifecycle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "goal-user")
	account := seedAccount(t, db, user.ID, "8200.00")
	svc, err := NewGoalService(db)
	require.NoError(t, err)

	goal, err := svc.Create(context.Background(), user.ID, models.GoalTypeSavings, CreateGoalInput{
		AccountID:     &account.ID,
		Name:          "Emergency fund",
		TargetAmount:  decimal.RequireFromString("10000.00"),
		CurrentAmount: decimal.RequireFromString("8200.00"),
	})
	require.NoError(t, err)
	require.Equal(t, models.GoalStateActive, goal.State)

	listed, err := svc.List(context.Background(), user.ID, models.GoalTypeSavings)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	current := decimal.RequireFromString("9000.00")
	updated, err := svc.Update(context.Background(), user.ID, goal.ID, models.GoalTypeSavings, UpdateGoalInput{
		CurrentAmount: &current,
	})
	require.NoError(t, err)
	require.True(t, updated.CurrentAmount.Equal(current))

	require.NoError(t, svc.Delete(context.Background(), user.ID, goal.ID, models.GoalTypeSavings))

	_, err = svc.Get(context.Background(), user.ID, goal.ID, models.GoalTypeSavings)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGoalTypesAreScoped(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "goal-scope")
	svc, err := NewGoalService(db)
	require.NoError(t, err)

	savings, err := svc.Create(context.Background(), user.ID, models.GoalTypeSavings, CreateGoalInput{
		Name:         "Vacation",
		TargetAmount: decimal.RequireFromString("2500.00"),
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), user.ID, models.GoalTypePayoff, CreateGoalInput{
		Name:          "Card balance",
		TargetAmount:  decimal.RequireFromString("430.00"),
		CurrentAmount: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	// A savings goal is invisible through the payoff collection.
	_, err = svc.Get(context.Background(), user.ID, savings.ID, models.GoalTypePayoff)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	payoffs, err := svc.List(context.Background(), user.ID, models.GoalTypePayoff)
	require.NoError(t, err)
	require.Len(t, payoffs, 1)
}

func TestGoalCreateValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "goal-valid")
	svc, err := NewGoalService(db)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), user.ID, "retirement", CreateGoalInput{
		Name:         "Nope",
		TargetAmount: decimal.NewFromInt(100),
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), user.ID, models.GoalTypeSavings, CreateGoalInput{
		Name: "  ",
	})
	require.Error(t, err)

	otherAccount := uint(9999)
	_, err = svc.Create(context.Background(), user.ID, models.GoalTypeSavings, CreateGoalInput{
		AccountID:    &otherAccount,
		Name:         "Orphan",
		TargetAmount: decimal.NewFromInt(100),
	})
	require.Error(t, err)
}

func TestGoalPercentComplete(t *testing.T) {
	savings := models.Goal{
		GoalType:      models.GoalTypeSavings,
		TargetAmount:  decimal.NewFromInt(1000),
		CurrentAmount: decimal.NewFromInt(250),
	}
	require.True(t, savings.PercentComplete().Equal(decimal.NewFromInt(25)))

	payoff := models.Goal{
		GoalType:      models.GoalTypePayoff,
		TargetAmount:  decimal.NewFromInt(400),
		CurrentAmount: decimal.NewFromInt(100),
	}
	require.True(t, payoff.PercentComplete().Equal(decimal.NewFromInt(75)))
}
