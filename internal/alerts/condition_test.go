package alerts

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tiles-dev/pfm-sim/internal/models"
)

func TestDecodeConditionPerType(t *testing.T) {
	cond, err := DecodeCondition(models.AlertTypeBalanceThreshold,
		[]byte(`{"account_id": 7, "threshold": "50.00", "direction": "below"}`))
	require.NoError(t, err)
	balance, ok := cond.(*BalanceThreshold)
	require.True(t, ok)
	require.EqualValues(t, 7, balance.AccountID)
	require.True(t, balance.Threshold.Equal(decimal.RequireFromString("50.00")))
	require.Equal(t, DirectionBelow, balance.Direction)

	cond, err = DecodeCondition(models.AlertTypeTransactionLimit, []byte(`{"amount": "200"}`))
	require.NoError(t, err)
	limit, ok := cond.(*TransactionLimit)
	require.True(t, ok)
	require.Nil(t, limit.AccountID)
	require.True(t, limit.Amount.Equal(decimal.NewFromInt(200)))

	cond, err = DecodeCondition(models.AlertTypeUpcomingBill, []byte(`{"days": 5}`))
	require.NoError(t, err)
	bill, ok := cond.(*UpcomingBill)
	require.True(t, ok)
	require.Equal(t, 5, bill.Days)
}

func TestDecodeConditionRejectsGarbage(t *testing.T) {
	_, err := DecodeCondition(models.AlertTypeBalanceThreshold, []byte(`{"threshold": "not-a-number"}`))
	require.Error(t, err)

	_, err = DecodeCondition("made_up_type", []byte(`{}`))
	require.Error(t, err)

	_, err = DecodeCondition(models.AlertTypeMerchantName, nil)
	require.Error(t, err)
}

func TestConditionRoundTrip(t *testing.T) {
	original := &MerchantName{Pattern: "Coffee", Exact: true}
	raw, err := EncodeCondition(original)
	require.NoError(t, err)

	decoded, err := DecodeCondition(models.AlertTypeMerchantName, raw)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestFingerprintCacheSuppressesWithinWindow(t *testing.T) {
	cache := newFingerprintCache(30 * time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, cache.Seen(1, "balance below 50", now))
	require.True(t, cache.Seen(1, "balance below 50", now.Add(time.Minute)))
	require.False(t, cache.Seen(2, "balance below 50", now.Add(time.Minute)))
	require.False(t, cache.Seen(1, "balance below 50", now.Add(31*time.Minute)))
}
