package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Totals are kept as integer counts of the token's smallest unit so INCRBY
// can update them atomically across processes.

func toUnits(a amount.DGT) int64 {
	return a.Decimal().Shift(amount.DGTDecimals).IntPart()
}

func fromUnits(units int64) (amount.DGT, error) {
	return amount.ToDGT(decimal.New(units, -amount.DGTDecimals))
}

// DailyWithdrawals tracks how much each user has withdrawn per UTC day.
type DailyWithdrawals struct {
	redis *RedisService
	now   func() time.Time
}

func NewDailyWithdrawals(r *RedisService) *DailyWithdrawals {
	return &DailyWithdrawals{redis: r, now: time.Now}
}

func (d *DailyWithdrawals) key(userID int64) (string, time.Time) {
	today := d.now().UTC()
	midnight := time.Date(today.Year(), today.Month(), today.Day()+1, 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("daily_withdrawals:%d:%s", userID, today.Format("2006-01-02")), midnight
}

// Get returns today's running total for userID.
func (d *DailyWithdrawals) Get(ctx context.Context, userID int64) (amount.DGT, error) {
	key, _ := d.key(userID)
	val, err := d.redis.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return amount.DGT{}, nil
	}
	if err != nil {
		return amount.DGT{}, fmt.Errorf("failed to get daily withdrawals: %w", err)
	}
	units, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return amount.DGT{}, fmt.Errorf("failed to parse daily withdrawals: %w", err)
	}
	return fromUnits(units)
}

func (d *DailyWithdrawals) incr(ctx context.Context, userID int64, units int64) (int64, error) {
	key, midnight := d.key(userID)
	pipe := d.redis.client.TxPipeline()
	total := pipe.IncrBy(ctx, key, units)
	pipe.ExpireAt(ctx, key, midnight)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to track daily withdrawals: %w", err)
	}
	return total.Val(), nil
}

// Reserve adds amt to today's total if allow accepts it given what was
// already withdrawn. The increment happens first so two concurrent
// reservations can never both see the old total.
func (d *DailyWithdrawals) Reserve(ctx context.Context, userID int64, amt amount.DGT, allow func(withdrawnToday, a amount.DGT) bool) (bool, error) {
	units := toUnits(amt)
	total, err := d.incr(ctx, userID, units)
	if err != nil {
		return false, err
	}
	before, err := fromUnits(total - units)
	if err != nil {
		return false, err
	}
	if allow(before, amt) {
		return true, nil
	}
	if _, err := d.incr(ctx, userID, -units); err != nil {
		return false, err
	}
	return false, nil
}

// Release gives back a reservation that did not go through.
func (d *DailyWithdrawals) Release(ctx context.Context, userID int64, amt amount.DGT) error {
	total, err := d.incr(ctx, userID, -toUnits(amt))
	if err != nil {
		return err
	}
	if total < 0 {
		// the reservation was made on a previous day
		key, midnight := d.key(userID)
		return d.redis.client.Set(ctx, key, 0, midnight.Sub(d.now())).Err()
	}
	return nil
}
