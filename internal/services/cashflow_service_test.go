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

func TestCashflowProjectionExpandsRecurrences(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "cashflow-user")

	svc, err := NewCashflowService(db)
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err = svc.CreateBill(context.Background(), user.ID, CreateCashflowItemInput{
		Name:      "Rent",
		Amount:    decimal.RequireFromString("1200.00"),
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Frequency: "monthly",
	})
	require.NoError(t, err)
	_, err = svc.CreateIncome(context.Background(), user.ID, CreateCashflowItemInput{
		Name:      "Payroll",
		Amount:    decimal.RequireFromString("2500.00"),
		StartDate: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		Frequency: "biweekly",
	})
	require.NoError(t, err)

	projection, err := svc.Project(context.Background(), user.ID, 30)
	require.NoError(t, err)

	var billEvents, incomeEvents int
	for _, event := range projection.Events {
		switch event.SourceType {
		case CashflowSourceBill:
			billEvents++
			require.True(t, event.Amount.IsNegative(), "bill events are outflows")
		case CashflowSourceIncome:
			incomeEvents++
			require.True(t, event.Amount.IsPositive())
		}
	}
	require.Equal(t, 1, billEvents)   // May 1
	require.Equal(t, 3, incomeEvents) // May 3, 17, 31

	// Re-projecting must not duplicate stored events.
	again, err := svc.Project(context.Background(), user.ID, 30)
	require.NoError(t, err)
	require.Len(t, again.Events, len(projection.Events))
}

func TestCashflowStoppedRecurrenceEnds(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "cashflow-stop-user")

	svc, err := NewCashflowService(db)
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	bill, err := svc.CreateBill(context.Background(), user.ID, CreateCashflowItemInput{
		Name:      "Gym",
		Amount:    decimal.RequireFromString("40.00"),
		StartDate: time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC),
		Frequency: "weekly",
	})
	require.NoError(t, err)

	stoppedOn := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	_, err = svc.UpdateBill(context.Background(), user.ID, bill.ID, UpdateCashflowItemInput{
		StoppedOn: &stoppedOn,
	})
	require.NoError(t, err)

	projection, err := svc.Project(context.Background(), user.ID, 60)
	require.NoError(t, err)
	require.Len(t, projection.Events, 2) // May 5 and May 12 only
}

func TestCashflowFrequencyValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "cashflow-valid-user")

	svc, err := NewCashflowService(db)
	require.NoError(t, err)

	_, err = svc.CreateBill(context.Background(), user.ID, CreateCashflowItemInput{
		Name:      "Bad",
		StartDate: time.Now(),
		Frequency: "fortnightly-ish",
	})
	require.Error(t, err)
}

func TestCashflowEventProcessedToggle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "cashflow-event-user")

	svc, err := NewCashflowService(db)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	_, err = svc.CreateBill(context.Background(), user.ID, CreateCashflowItemInput{
		Name:      "Rent",
		Amount:    decimal.RequireFromString("1450.00"),
		StartDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Frequency: "monthly",
	})
	require.NoError(t, err)

	projection, err := svc.Project(context.Background(), user.ID, 30)
	require.NoError(t, err)
	require.NotEmpty(t, projection.Events)

	event, err := svc.UpdateEvent(context.Background(), user.ID, projection.Events[0].ID, true)
	require.NoError(t, err)
	require.True(t, event.Processed)

	_, err = svc.UpdateEvent(context.Background(), user.ID, 99999, true)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
