package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tiles-dev/pfm-sim/internal/database/testutil"
	"github.com/tiles-dev/pfm-sim/internal/models"
	"github.com/tiles-dev/pfm-sim/internal/services"
)

func TestGeneratorCreatesDemoUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	generator, err := NewGenerator(db)
	require.NoError(t, err)

	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	user, err := generator.Run(context.Background(), Options{
		PCID:   "demo-1",
		Months: 2,
		Seed:   7,
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	require.Equal(t, "demo-1", user.PartnerCustomerID)

	var accounts int64
	require.NoError(t, db.Model(&models.Account{}).Where("user_id = ?", user.ID).Count(&accounts).Error)
	require.EqualValues(t, 3, accounts)

	var transactions int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&transactions).Error)
	require.Greater(t, transactions, int64(10))

	var budgets int64
	require.NoError(t, db.Model(&models.Budget{}).Where("user_id = ?", user.ID).Count(&budgets).Error)
	require.EqualValues(t, 3, budgets)

	var goals []models.Goal
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&goals).Error)
	require.Len(t, goals, 2)

	var alertCount int64
	require.NoError(t, db.Model(&models.Alert{}).Where("user_id = ?", user.ID).Count(&alertCount).Error)
	require.EqualValues(t, 2, alertCount)

	// The seeded password works through the normal login path.
	users, err := services.NewUserService(db)
	require.NoError(t, err)
	_, err = users.Authenticate(context.Background(), "demo@example.com", "demo-password")
	require.NoError(t, err)
}

func TestGeneratorIsDeterministic(t *testing.T) {
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	counts := make([]int64, 0, 2)

	for i := 0; i < 2; i++ {
		db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
		generator, err := NewGenerator(db)
		require.NoError(t, err)

		user, err := generator.Run(context.Background(), Options{
			PCID:   "demo-repeat",
			Months: 1,
			Seed:   42,
			Now:    func() time.Time { return now },
		})
		require.NoError(t, err)

		var total int64
		require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&total).Error)
		counts = append(counts, total)
	}

	require.Equal(t, counts[0], counts[1])
}

func TestGeneratorRejectsDuplicatePCID(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	generator, err := NewGenerator(db)
	require.NoError(t, err)

	opts := Options{PCID: "demo-dup", Months: 1, Seed: 3}
	_, err = generator.Run(context.Background(), opts)
	require.NoError(t, err)

	_, err = generator.Run(context.Background(), opts)
	require.Error(t, err)
}
