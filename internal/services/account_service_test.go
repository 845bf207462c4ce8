package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/database/testutil"
	"github.com/tiles-dev/pfm-sim/internal/models"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
)

func seedUser(t *testing.T, db *gorm.DB, pcid string) *models.User {
	t.Helper()
	user := models.User{PartnerCustomerID: pcid, Email: pcid + "@example.com"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestAccountLifecycle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db, "acct-user")
	svc, err := NewAccountService(db)
	require.NoError(t, err)

	account, err := svc.Create(context.Background(), user.ID, CreateAccountInput{
		Name:    "Everyday Checking",
		Balance: decimal.RequireFromString("1250.75"),
	})
	require.NoError(t, err)
	require.Equal(t, models.AccountStateActive, account.State)
	require.Equal(t, "checking", account.AccountType)

	listed, err := svc.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	newName := "Main Checking"
	updated, err := svc.Update(context.Background(), user.ID, account.ID, UpdateAccountInput{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, "Main Checking", updated.Name)

	archived, err := svc.Archive(context.Background(), user.ID, account.ID)
	require.NoError(t, err)
	require.Equal(t, models.AccountStateArchived, archived.State)

	require.NoError(t, svc.Delete(context.Background(), user.ID, account.ID))
	_, err = svc.Get(context.Background(), user.ID, account.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAccountScopedToOwner(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")
	svc, err := NewAccountService(db)
	require.NoError(t, err)

	account, err := svc.Create(context.Background(), owner.ID, CreateAccountInput{Name: "Private"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), other.ID, account.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), other.ID, account.ID), apperrors.ErrNotFound)
}
