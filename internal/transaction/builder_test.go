package transaction

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func party(userID int64) Party {
	return Party{UserID: userID, WalletID: uuid.New()}
}

func TestBuildRequiresCoreFields(t *testing.T) {
	_, err := NewBuilder().Build()
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 3)

	fields := map[string]bool{}
	for _, e := range merr.Errors {
		var missing *MissingFieldError
		require.True(t, errors.As(e, &missing))
		fields[missing.Field] = true
	}
	assert.Equal(t, map[string]bool{"type": true, "amount": true, "fromWallet": true}, fields)
}

func TestBuildSingleMissingFieldIsReturnedDirectly(t *testing.T) {
	_, err := NewBuilder().OfType(TypeShopPurchase).WithAmount(amount.MustDGT(5)).Build()

	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "fromWallet", missing.Field)
}

func TestBuildRequiresDestinationForTwoSidedTypes(t *testing.T) {
	_, err := NewBuilder().
		OfType(TypeTransfer).
		WithAmount(amount.MustDGT(5)).
		FromWallet(uuid.New()).
		Build()

	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "toWallet", missing.Field)

	_, err = NewBuilder().
		OfType(TypeDeposit).
		WithAmount(amount.MustDGT(5)).
		FromWallet(uuid.New()).
		Build()
	assert.NoError(t, err)
}

func TestBuildDerivesNetAmountAndDefaults(t *testing.T) {
	from, to := uuid.New(), uuid.New()
	tx, err := NewBuilder().
		WithClock(clock).
		WithFee(amount.DGTAsFee(amount.MustDGT("2.5"))).
		ToWallet(to).
		FromWallet(from).
		WithAmount(amount.MustDGT(10)).
		OfType(TypeTransfer).
		Build()
	require.NoError(t, err)

	assert.Equal(t, TypeTransfer, tx.Type())
	assert.True(t, amount.Equal(tx.NetAmount(), amount.MustDGT("7.5")))
	assert.Equal(t, StatusPending, tx.Status())
	assert.Equal(t, map[string]any{"source": "transfer"}, tx.Metadata())
	assert.Equal(t, fixedNow, tx.CreatedAt())
	assert.Equal(t, from, tx.FromWallet())
	assert.Equal(t, uuid.NullUUID{UUID: to, Valid: true}, tx.ToWallet())
}

func TestBuildRejectsFeeAboveAmount(t *testing.T) {
	_, err := NewBuilder().
		OfType(TypeShopPurchase).
		FromWallet(uuid.New()).
		WithAmount(amount.MustDGT(1)).
		WithFee(amount.DGTAsFee(amount.MustDGT(2))).
		Build()
	assert.ErrorIs(t, err, amount.ErrInvalidAmount)
}

func TestBuildRejectsNegativeAmount(t *testing.T) {
	_, err := NewBuilder().
		OfType(TypeShopPurchase).
		FromWallet(uuid.New()).
		WithAmount(amount.MustDGT(-1)).
		Build()
	assert.ErrorIs(t, err, amount.ErrInvalidAmount)
}

func TestBuildRejectsSameWalletAndBadStatus(t *testing.T) {
	id := uuid.New()
	_, err := NewBuilder().OfType(TypeTransfer).WithAmount(amount.MustDGT(1)).FromWallet(id).ToWallet(id).Build()
	assert.ErrorIs(t, err, ErrSameWallet)

	_, err = NewBuilder().OfType(TypeDeposit).WithAmount(amount.MustDGT(1)).FromWallet(id).WithStatus("settled").Build()
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBuiltTransactionIsImmutable(t *testing.T) {
	md := map[string]any{"note": "hello", "nested": map[string]any{"k": "v"}}
	b := NewBuilder().OfType(TypeDeposit).WithAmount(amount.MustDGT(1)).FromWallet(uuid.New()).WithMetadata(md)
	tx, err := b.Build()
	require.NoError(t, err)

	md["note"] = "changed"
	got := tx.Metadata()
	got["note"] = "mutated"
	got["nested"].(map[string]any)["k"] = "mutated"
	b.WithMetadataField("note", "builder changed")

	again := tx.Metadata()
	assert.Equal(t, "hello", again["note"])
	assert.Equal(t, "v", again["nested"].(map[string]any)["k"])
	assert.Equal(t, "deposit", again["source"])
}

func TestBuilderReuseStampsNearDuplicates(t *testing.T) {
	b := NewBuilder().WithClock(clock).ShopPurchase(amount.MustDGT(3), party(9), "hat")
	first, err := b.Build()
	require.NoError(t, err)

	second, err := b.WithMetadataField("itemId", "scarf").Build()
	require.NoError(t, err)

	assert.Equal(t, first.Type(), second.Type())
	assert.True(t, amount.Equal(first.Amount(), second.Amount()))
	assert.Equal(t, first.FromWallet(), second.FromWallet())
	assert.Equal(t, "hat", first.Metadata()["itemId"])
	assert.Equal(t, "scarf", second.Metadata()["itemId"])
}

func TestTipIntent(t *testing.T) {
	from, to := party(1), party(2)
	tx, err := NewBuilder().Tip(amount.MustDGT(10), from, to, &ContentRef{ThreadID: 44, PostID: 45}).Build()
	require.NoError(t, err)

	assert.Equal(t, TypeTip, tx.Type())
	assert.Equal(t, from.WalletID, tx.FromWallet())
	assert.Equal(t, to.WalletID, tx.ToWallet().UUID)
	md := tx.Metadata()
	assert.Equal(t, int64(1), md["senderId"])
	assert.Equal(t, int64(2), md["recipientId"])
	assert.Equal(t, int64(44), md["threadId"])
	assert.Equal(t, int64(45), md["postId"])

	tx, err = NewBuilder().Tip(amount.MustDGT(10), from, to, nil).Build()
	require.NoError(t, err)
	assert.NotContains(t, tx.Metadata(), "threadId")

	_, err = NewBuilder().Tip(amount.MustDGT(10), from, Party{UserID: 1, WalletID: uuid.New()}, nil).Build()
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestRainIntent(t *testing.T) {
	userA := party(7)
	tx, err := NewBuilder().Rain(amount.MustDGT(100), userA, 4).Build()
	require.NoError(t, err)

	assert.Equal(t, TypeRain, tx.Type())
	perUser, err := amount.ToDGT(tx.Metadata()["amountPerUser"])
	require.NoError(t, err)
	assert.True(t, amount.Equal(perUser, amount.MustDGT(25)))
	assert.Equal(t, 4, tx.Metadata()["participantCount"])
	assert.False(t, tx.IsTwoSided())
}

func TestRainIntentRejectsNoParticipants(t *testing.T) {
	_, err := NewBuilder().Rain(amount.MustDGT(100), party(7), 0).Build()
	assert.ErrorIs(t, err, amount.ErrDivisionByZero)

	_, err = NewBuilder().Rain(amount.MustDGT(100), party(7), -3).Build()
	assert.ErrorIs(t, err, amount.ErrInvalidAmount)
}

func TestCryptoDepositIntent(t *testing.T) {
	userX := party(3)
	usd, err := amount.ToUSD(100)
	require.NoError(t, err)

	tx, err := NewBuilder().CryptoDeposit(amount.MustDGT(50), usd, userX, "USDT").Build()
	require.NoError(t, err)

	rate, ok := tx.ExchangeRate()
	require.True(t, ok)
	assert.Equal(t, "2.00000000", rate.String())
	gotUSD, ok := tx.USDAmount()
	require.True(t, ok)
	assert.Equal(t, "100.00", gotUSD.String())
	assert.Equal(t, "USDT", tx.Metadata()["originalToken"])
	assert.True(t, amount.Equal(tx.NetAmount(), amount.MustDGT(50)))

	_, err = NewBuilder().CryptoDeposit(amount.MustDGT(0), usd, userX, "USDT").Build()
	assert.ErrorIs(t, err, amount.ErrDivisionByZero)
}

func TestAdminAdjustmentAlwaysCarriesAudit(t *testing.T) {
	user := party(5)
	tx, err := NewBuilder().AdminAdjustment(amount.MustDGT(20), user, 99, "refund for outage", true).Build()
	require.NoError(t, err)
	md := tx.Metadata()
	assert.Equal(t, int64(99), md["adminId"])
	assert.Equal(t, "refund for outage", md["reason"])
	assert.Equal(t, "credit", md["direction"])

	_, err = NewBuilder().AdminAdjustment(amount.MustDGT(20), user, 99, "   ", false).Build()
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	_, err = NewBuilder().
		AdminAdjustment(amount.MustDGT(20), user, 99, "ok", false).
		WithMetadata(map[string]any{"note": "dropped the reason"}).
		Build()
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestWithdrawalIntent(t *testing.T) {
	tx, err := NewBuilder().Withdrawal(amount.MustDGT(5), party(8), "0xabc").Build()
	require.NoError(t, err)
	assert.Equal(t, TypeWithdrawal, tx.Type())
	assert.Equal(t, "0xabc", tx.Metadata()["destination"])
}

func TestMetadataJSON(t *testing.T) {
	tx, err := NewBuilder().Rain(amount.MustDGT(9), party(1), 3).Build()
	require.NoError(t, err)

	raw, err := tx.MetadataJSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "3.00000000", decoded["amountPerUser"])
	assert.Equal(t, "rain", decoded["source"])
}

func TestWithFeePercentAppliesPolicyFloor(t *testing.T) {
	policy := amount.DefaultPolicy()
	pct := decimal.RequireFromString("2.5")

	tx, err := NewBuilder().Tip(amount.MustDGT(100), party(1), party(2), nil).WithFeePercent(policy, pct).Build()
	require.NoError(t, err)
	assert.Equal(t, "2.50000000", tx.Fee().String())
	assert.Equal(t, "97.50000000", tx.NetAmount().String())

	tx, err = NewBuilder().Tip(amount.MustDGT(2), party(1), party(2), nil).WithFeePercent(policy, pct).Build()
	require.NoError(t, err)
	assert.Equal(t, policy.MinimumFee.String(), tx.Fee().String())

	_, err = NewBuilder().OfType(TypeTip).WithFeePercent(policy, pct).Build()
	var missing *MissingFieldError
	assert.True(t, errors.As(err, &missing))
}

func TestAdjustmentDirection(t *testing.T) {
	tx, err := NewBuilder().AdminAdjustment(amount.MustDGT(5), party(1), 7, "refund", true).Build()
	require.NoError(t, err)
	isCredit, ok := tx.AdjustmentDirection()
	assert.True(t, ok)
	assert.True(t, isCredit)

	tx, err = NewBuilder().ShopPurchase(amount.MustDGT(5), party(1), "item").Build()
	require.NoError(t, err)
	_, ok = tx.AdjustmentDirection()
	assert.False(t, ok)
}
