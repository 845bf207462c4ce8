package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	"github.com/tiles-dev/pfm-sim/internal/database/testutil"
	"github.com/tiles-dev/pfm-sim/internal/models"
)

func seedSweepUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{PartnerCustomerID: "pcid-maint", Email: "maint@example.com"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestRunOnceSweepsAlerts(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedSweepUser(t, db)

	account := models.Account{
		UserID:      user.ID,
		Name:        "Checking",
		AccountType: "checking",
		Balance:     decimal.RequireFromString("40.00"),
		State:       models.AccountStateActive,
	}
	require.NoError(t, db.Create(&account).Error)

	conditions, err := alerts.EncodeCondition(&alerts.BalanceThreshold{
		AccountID: account.ID,
		Threshold: decimal.RequireFromString("50.00"),
		Direction: "below",
	})
	require.NoError(t, err)
	alert := models.Alert{
		UserID:     user.ID,
		AlertType:  models.AlertTypeBalanceThreshold,
		Conditions: conditions,
		Active:     true,
	}
	require.NoError(t, db.Create(&alert).Error)

	evaluator, err := alerts.NewEvaluator(db)
	require.NoError(t, err)
	runner, err := NewRunner(db, evaluator)
	require.NoError(t, err)

	require.NoError(t, runner.RunOnce(context.Background()))

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
}

func TestRunOncePurgesAgedNotifications(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedSweepUser(t, db)

	alert := models.Alert{
		UserID:    user.ID,
		AlertType: models.AlertTypeBalanceThreshold,
		Active:    false,
	}
	require.NoError(t, db.Create(&alert).Error)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	stale := models.Notification{
		UserID:    user.ID,
		AlertID:   alert.ID,
		AlertType: alert.AlertType,
		Message:   "old news",
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Model(&stale).Update("created_at", now.AddDate(0, 0, -120)).Error)

	fresh := models.Notification{
		UserID:    user.ID,
		AlertID:   alert.ID,
		AlertType: alert.AlertType,
		Message:   "recent",
	}
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Model(&fresh).Update("created_at", now.AddDate(0, 0, -5)).Error)

	evaluator, err := alerts.NewEvaluator(db)
	require.NoError(t, err)
	runner, err := NewRunner(db, evaluator,
		WithNow(func() time.Time { return now }),
		WithRetentionDays(90),
	)
	require.NoError(t, err)

	require.NoError(t, runner.RunOnce(context.Background()))

	var remaining []models.Notification
	require.NoError(t, db.Unscoped().Where("user_id = ?", user.ID).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "recent", remaining[0].Message)
}

func TestStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	evaluator, err := alerts.NewEvaluator(db)
	require.NoError(t, err)

	scheduler := cron.New(cron.WithLogger(cron.DiscardLogger))
	runner, err := NewRunner(db, evaluator,
		WithCron(scheduler),
		WithEvaluateSchedule("@every 1m"),
		WithPurgeSchedule("@daily"),
	)
	require.NoError(t, err)

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.Len(t, scheduler.Entries(), 2)
}
