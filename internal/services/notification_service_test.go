package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/database/testutil"
	"github.com/tiles-dev/pfm-sim/internal/models"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
)

func seedNotification(t *testing.T, db *gorm.DB, userID uint, message string) *models.Notification {
	t.Helper()
	notification := models.Notification{
		UserID:    userID,
		AlertID:   1,
		AlertType: models.AlertTypeBalanceThreshold,
		Message:   message,
	}
	require.NoError(t, db.Create(&notification).Error)
	return &notification
}

func TestNotificationListAndMarkRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "notif-user")
	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	first := seedNotification(t, db, user.ID, "balance low")
	seedNotification(t, db, user.ID, "bill due")

	rows, total, err := svc.List(context.Background(), user.ID, ListNotificationsInput{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, rows, 2)

	read, err := svc.MarkRead(context.Background(), user.ID, first.ID)
	require.NoError(t, err)
	require.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	rows, total, err = svc.List(context.Background(), user.ID, ListNotificationsInput{UnreadOnly: true})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "bill due", rows[0].Message)
}

func TestNotificationDeleteScopedToOwner(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	owner := seedUser(t, db, "notif-owner")
	other := seedUser(t, db, "notif-other")
	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	notification := seedNotification(t, db, owner.ID, "private")
	require.ErrorIs(t, svc.Delete(context.Background(), other.ID, notification.ID), apperrors.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), owner.ID, notification.ID))
}

func TestNotificationPurgeOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "notif-purge-user")
	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	old := seedNotification(t, db, user.ID, "ancient")
	stale := time.Now().AddDate(0, 0, -120)
	require.NoError(t, db.Model(old).Update("created_at", stale).Error)
	seedNotification(t, db, user.ID, "fresh")

	purged, err := svc.PurgeOlderThan(context.Background(), time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	var remaining int64
	require.NoError(t, db.Unscoped().Model(&models.Notification{}).Count(&remaining).Error)
	require.EqualValues(t, 1, remaining)
}
