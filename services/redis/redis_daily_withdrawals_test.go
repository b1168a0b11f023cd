package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*DailyWithdrawals, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc, err := NewRedisService(&RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	d := NewDailyWithdrawals(svc)
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	mr.SetTime(now)
	return d, mr
}

func limitOf(max string) func(withdrawnToday, a amount.DGT) bool {
	policy := amount.DefaultPolicy()
	policy.DailyWithdrawalLimit = amount.MustDGT(max)
	return policy.IsWithinDailyWithdrawalCeiling
}

func TestReserveAccumulatesUntilLimit(t *testing.T) {
	d, mr := newTracker(t)
	ctx := context.Background()

	ok, err := d.Reserve(ctx, 7, amount.MustDGT("60.5"), limitOf("100"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Reserve(ctx, 7, amount.MustDGT("39.5"), limitOf("100"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Reserve(ctx, 7, amount.MustDGT("0.00000001"), limitOf("100"))
	require.NoError(t, err)
	assert.False(t, ok)

	total, err := d.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "100.00000000", total.String())

	assert.True(t, mr.Exists("daily_withdrawals:7:2024-05-10"))
	assert.Greater(t, mr.TTL("daily_withdrawals:7:2024-05-10"), time.Duration(0))
}

func TestReleaseReturnsReservation(t *testing.T) {
	d, _ := newTracker(t)
	ctx := context.Background()

	_, err := d.Reserve(ctx, 1, amount.MustDGT(30), limitOf("100"))
	require.NoError(t, err)
	require.NoError(t, d.Release(ctx, 1, amount.MustDGT(30)))

	total, err := d.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, amount.IsZero(total))
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	d, _ := newTracker(t)
	ctx := context.Background()

	require.NoError(t, d.Release(ctx, 2, amount.MustDGT(5)))
	total, err := d.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, amount.IsZero(total))
}

func TestTotalsArePerDay(t *testing.T) {
	d, _ := newTracker(t)
	ctx := context.Background()

	_, err := d.Reserve(ctx, 3, amount.MustDGT(10), limitOf("100"))
	require.NoError(t, err)

	d.now = func() time.Time { return time.Date(2024, 5, 11, 0, 0, 1, 0, time.UTC) }
	total, err := d.Get(ctx, 3)
	require.NoError(t, err)
	assert.True(t, amount.IsZero(total))
}

func TestUnitConversionIsExact(t *testing.T) {
	a := amount.MustDGT("123.45678901")
	back, err := fromUnits(toUnits(a))
	require.NoError(t, err)
	assert.True(t, amount.Equal(a, back))
}
