package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/database/testutil"
	"github.com/tiles-dev/pfm-sim/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustCondition(t *testing.T, cond Condition) datatypes.JSON {
	t.Helper()
	raw, err := EncodeCondition(cond)
	require.NoError(t, err)
	return datatypes.JSON(raw)
}

func createUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{
		PartnerCustomerID: "pcid-1",
		Email:             "demo@example.com",
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createAccount(t *testing.T, db *gorm.DB, userID uint, balance string) *models.Account {
	t.Helper()
	account := models.Account{
		UserID:      userID,
		Name:        "Everyday Checking",
		AccountType: "checking",
		Balance:     decimal.RequireFromString(balance),
		State:       models.AccountStateActive,
	}
	require.NoError(t, db.Create(&account).Error)
	return &account
}

func TestBalanceThresholdFires(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)
	account := createAccount(t, db, user.ID, "40.00")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	alert := models.Alert{
		UserID:        user.ID,
		AlertType:     models.AlertTypeBalanceThreshold,
		Active:        true,
		EmailDelivery: true,
		Conditions: mustCondition(t, &BalanceThreshold{
			AccountID: account.ID,
			Threshold: decimal.RequireFromString("50.00"),
			Direction: DirectionBelow,
		}),
	}
	require.NoError(t, db.Create(&alert).Error)

	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Evaluated)
	require.Equal(t, 1, summary.Fired)
	require.Empty(t, summary.Errors)

	var notifications []models.Notification
	require.NoError(t, db.Where("alert_id = ?", alert.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	require.Contains(t, notifications[0].Message, "Everyday Checking")
	require.Contains(t, notifications[0].Message, "40.00")
	require.Equal(t, models.DeliveryPending, notifications[0].EmailStatus)
	require.Empty(t, notifications[0].SMSStatus)

	var reloaded models.Alert
	require.NoError(t, db.First(&reloaded, alert.ID).Error)
	require.NotNil(t, reloaded.LastTriggeredAt)
	require.True(t, reloaded.LastTriggeredAt.Equal(now))
}

func TestDisabledChannelsStayEmptyOnFire(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)
	account := createAccount(t, db, user.ID, "40.00")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	alert := models.Alert{
		UserID:        user.ID,
		AlertType:     models.AlertTypeBalanceThreshold,
		Active:        true,
		EmailDelivery: false,
		SMSDelivery:   false,
		Conditions: mustCondition(t, &BalanceThreshold{
			AccountID: account.ID,
			Threshold: decimal.RequireFromString("50.00"),
			Direction: DirectionBelow,
		}),
	}
	require.NoError(t, db.Create(&alert).Error)

	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Fired)

	// The notification row must not report a pending delivery on channels
	// the alert has switched off.
	var notification models.Notification
	require.NoError(t, db.Where("alert_id = ?", alert.ID).First(&notification).Error)
	require.Empty(t, notification.EmailStatus)
	require.Empty(t, notification.SMSStatus)
}

func TestCooldownSuppressesRefire(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)
	account := createAccount(t, db, user.ID, "40.00")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lastTriggered := now.Add(-DefaultCooldown + time.Second)
	alert := models.Alert{
		UserID:          user.ID,
		AlertType:       models.AlertTypeBalanceThreshold,
		Active:          true,
		LastTriggeredAt: &lastTriggered,
		Conditions: mustCondition(t, &BalanceThreshold{
			AccountID: account.ID,
			Threshold: decimal.RequireFromString("50.00"),
		}),
	}
	require.NoError(t, db.Create(&alert).Error)

	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 0, summary.Fired)
	require.Empty(t, summary.Errors)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("alert_id = ?", alert.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)
	account := createAccount(t, db, user.ID, "40.00")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	alert := models.Alert{
		UserID:    user.ID,
		AlertType: models.AlertTypeBalanceThreshold,
		Active:    true,
		Conditions: mustCondition(t, &BalanceThreshold{
			AccountID: account.ID,
			Threshold: decimal.RequireFromString("50.00"),
		}),
	}
	require.NoError(t, db.Create(&alert).Error)

	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	first, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, first.Fired)

	second, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 0, second.Fired)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("alert_id = ?", alert.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestTransactionLimitFires(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)
	account := createAccount(t, db, user.ID, "500.00")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	transaction := models.Transaction{
		UserID:       user.ID,
		AccountID:    account.ID,
		OriginalName: "BIG TICKET PURCHASE",
		MerchantName: "Big Ticket",
		Amount:       decimal.RequireFromString("-250.00"),
		PostedAt:     now.Add(-time.Hour),
	}
	require.NoError(t, db.Create(&transaction).Error)

	alert := models.Alert{
		UserID:    user.ID,
		AlertType: models.AlertTypeTransactionLimit,
		Active:    true,
		Conditions: mustCondition(t, &TransactionLimit{
			Amount: decimal.RequireFromString("200.00"),
		}),
	}
	require.NoError(t, db.Create(&alert).Error)

	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Fired)

	var notification models.Notification
	require.NoError(t, db.Where("alert_id = ?", alert.ID).First(&notification).Error)
	require.Contains(t, notification.Message, "250.00")
	require.Contains(t, notification.Message, "200.00")
}

func TestMerchantNameMatch(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)
	account := createAccount(t, db, user.ID, "500.00")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	transaction := models.Transaction{
		UserID:       user.ID,
		AccountID:    account.ID,
		MerchantName: "Corner Coffee Roasters",
		Amount:       decimal.RequireFromString("-4.50"),
		PostedAt:     now.Add(-2 * time.Hour),
	}
	require.NoError(t, db.Create(&transaction).Error)

	alert := models.Alert{
		UserID:     user.ID,
		AlertType:  models.AlertTypeMerchantName,
		Active:     true,
		Conditions: mustCondition(t, &MerchantName{Pattern: "coffee"}),
	}
	require.NoError(t, db.Create(&alert).Error)

	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Fired)

	var notification models.Notification
	require.NoError(t, db.Where("alert_id = ?", alert.ID).First(&notification).Error)
	require.Contains(t, notification.Message, "Corner Coffee Roasters")
}

func TestSpendingTargetAndGoalMilestone(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)

	budget := models.Budget{
		UserID:       user.ID,
		Name:         "Dining Out",
		BudgetAmount: decimal.RequireFromString("200.00"),
		Spent:        decimal.RequireFromString("180.00"),
		Month:        5,
		Year:         2024,
	}
	require.NoError(t, db.Create(&budget).Error)

	goal := models.Goal{
		UserID:        user.ID,
		GoalType:      models.GoalTypeSavings,
		Name:          "Vacation",
		TargetAmount:  decimal.RequireFromString("1000.00"),
		CurrentAmount: decimal.RequireFromString("550.00"),
		State:         models.GoalStateActive,
	}
	require.NoError(t, db.Create(&goal).Error)

	spendingAlert := models.Alert{
		UserID:    user.ID,
		AlertType: models.AlertTypeSpendingTarget,
		Active:    true,
		Conditions: mustCondition(t, &SpendingTarget{
			BudgetID: budget.ID,
			Percent:  decimal.RequireFromString("80"),
		}),
	}
	require.NoError(t, db.Create(&spendingAlert).Error)

	goalAlert := models.Alert{
		UserID:    user.ID,
		AlertType: models.AlertTypeGoalMilestone,
		Active:    true,
		Conditions: mustCondition(t, &GoalMilestone{
			GoalID:  goal.ID,
			Percent: decimal.RequireFromString("50"),
		}),
	}
	require.NoError(t, db.Create(&goalAlert).Error)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Evaluated)
	require.Equal(t, 2, summary.Fired)
	require.Empty(t, summary.Errors)
}

func TestUpcomingBillFires(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bill := models.CashflowBill{
		UserID:    user.ID,
		Name:      "Rent",
		Amount:    decimal.RequireFromString("1200.00"),
		StartDate: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Frequency: models.FrequencyMonthly,
	}
	require.NoError(t, db.Create(&bill).Error)

	alert := models.Alert{
		UserID:     user.ID,
		AlertType:  models.AlertTypeUpcomingBill,
		Active:     true,
		Conditions: mustCondition(t, &UpcomingBill{Days: 3}),
	}
	require.NoError(t, db.Create(&alert).Error)

	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Fired)

	var notification models.Notification
	require.NoError(t, db.Where("alert_id = ?", alert.ID).First(&notification).Error)
	require.Contains(t, notification.Message, "Rent")
	require.Contains(t, notification.Message, "May 3")
}

func TestBrokenAlertDoesNotAbortPass(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)
	account := createAccount(t, db, user.ID, "40.00")

	broken := models.Alert{
		UserID:    user.ID,
		AlertType: models.AlertTypeBalanceThreshold,
		Active:    true,
		Conditions: mustCondition(t, &BalanceThreshold{
			AccountID: 99999, // dangling reference
			Threshold: decimal.RequireFromString("50.00"),
		}),
	}
	require.NoError(t, db.Create(&broken).Error)

	healthy := models.Alert{
		UserID:    user.ID,
		AlertType: models.AlertTypeBalanceThreshold,
		Active:    true,
		Conditions: mustCondition(t, &BalanceThreshold{
			AccountID: account.ID,
			Threshold: decimal.RequireFromString("50.00"),
		}),
	}
	require.NoError(t, db.Create(&healthy).Error)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Evaluated)
	require.Equal(t, 1, summary.Fired)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, broken.ID, summary.Errors[0].AlertID)
}

func TestEvaluateAllCoversEveryUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, pcid := range []string{"pcid-a", "pcid-b"} {
		user := models.User{PartnerCustomerID: pcid}
		require.NoError(t, db.Create(&user).Error)
		account := createAccount(t, db, user.ID, "10.00")

		alert := models.Alert{
			UserID:    user.ID,
			AlertType: models.AlertTypeBalanceThreshold,
			Active:    true,
			Conditions: mustCondition(t, &BalanceThreshold{
				AccountID: account.ID,
				Threshold: decimal.RequireFromString("25.00"),
			}),
		}
		require.NoError(t, db.Create(&alert).Error)
	}

	evaluator, err := NewEvaluator(db, WithClock(fixedClock(now)))
	require.NoError(t, err)

	summary, err := evaluator.EvaluateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Evaluated)
	require.Equal(t, 2, summary.Fired)
}

func TestInactiveAlertsAreIgnored(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createUser(t, db)
	account := createAccount(t, db, user.ID, "40.00")

	alert := models.Alert{
		UserID:    user.ID,
		AlertType: models.AlertTypeBalanceThreshold,
		Active:    false,
		Conditions: mustCondition(t, &BalanceThreshold{
			AccountID: account.ID,
			Threshold: decimal.RequireFromString("50.00"),
		}),
	}
	require.NoError(t, db.Create(&alert).Error)

	evaluator, err := NewEvaluator(db)
	require.NoError(t, err)

	summary, err := evaluator.Evaluate(context.Background(), user.ID)
	require.NoError(t, err)
	require.Zero(t, summary.Evaluated)
	require.Zero(t, summary.Fired)
}
