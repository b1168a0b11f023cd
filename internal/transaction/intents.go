package transaction

import (
	"fmt"
	"strings"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New()

// ContentRef points a tip at the forum content it was given for.
type ContentRef struct {
	ThreadID int64
	PostID   int64
}

type TipMetadata struct {
	Source      string `mapstructure:"source" validate:"required"`
	SenderID    int64  `mapstructure:"senderId" validate:"gt=0"`
	RecipientID int64  `mapstructure:"recipientId" validate:"gt=0,nefield=SenderID"`
	ThreadID    int64  `mapstructure:"threadId" validate:"gte=0"`
	PostID      int64  `mapstructure:"postId" validate:"gte=0"`
}

type RainMetadata struct {
	Source           string `mapstructure:"source" validate:"required"`
	SenderID         int64  `mapstructure:"senderId" validate:"gt=0"`
	ParticipantCount int    `mapstructure:"participantCount" validate:"gt=0"`
	AmountPerUser    string `mapstructure:"amountPerUser" validate:"required,numeric"`
}

type ShopPurchaseMetadata struct {
	Source string `mapstructure:"source" validate:"required"`
	UserID int64  `mapstructure:"userId" validate:"gt=0"`
	ItemID string `mapstructure:"itemId" validate:"required"`
}

type DepositMetadata struct {
	Source        string `mapstructure:"source" validate:"required"`
	UserID        int64  `mapstructure:"userId" validate:"gt=0"`
	OriginalToken string `mapstructure:"originalToken" validate:"required"`
	TokenAmount   string `mapstructure:"tokenAmount" validate:"required,numeric"`
	USDAmount     string `mapstructure:"usdAmount" validate:"required,numeric"`
	ExchangeRate  string `mapstructure:"exchangeRate" validate:"required,numeric"`
}

type AdminAdjustmentMetadata struct {
	Source    string `mapstructure:"source" validate:"required"`
	UserID    int64  `mapstructure:"userId" validate:"gt=0"`
	AdminID   int64  `mapstructure:"adminId" validate:"gt=0"`
	Reason    string `mapstructure:"reason" validate:"required"`
	IsCredit  bool   `mapstructure:"isCredit"`
	Direction string `mapstructure:"direction" validate:"oneof=credit debit"`
}

type WithdrawalMetadata struct {
	Source      string `mapstructure:"source" validate:"required"`
	UserID      int64  `mapstructure:"userId" validate:"gt=0"`
	Destination string `mapstructure:"destination" validate:"required"`
}

// toMetadata validates a typed metadata struct and flattens it into the map
// form stored on the transaction. Keys listed in optional are dropped when
// they hold their zero value.
func toMetadata(v any, optional ...string) (map[string]any, error) {
	if err := validate.Struct(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	out := map[string]any{}
	if err := mapstructure.Decode(v, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	for _, key := range optional {
		if val, ok := out[key]; ok && (val == int64(0) || val == "") {
			delete(out, key)
		}
	}
	return out, nil
}

func (b *Builder) intent(t Type, amt amount.DGT, from uuid.UUID) *Builder {
	b.OfType(t).WithAmount(amt).FromWallet(from)
	b.errs = nil
	b.to = uuid.NullUUID{}
	b.usd = nil
	b.rate = nil
	return b
}

func (b *Builder) withIntentMetadata(v any, optional ...string) *Builder {
	m, err := toMetadata(v, optional...)
	if err != nil {
		return b.fail(err)
	}
	return b.WithMetadata(m)
}

// Tip moves amt from one user's wallet to another's. content is optional.
func (b *Builder) Tip(amt amount.DGT, from, to Party, content *ContentRef) *Builder {
	b.intent(TypeTip, amt, from.WalletID).ToWallet(to.WalletID)
	md := TipMetadata{
		Source:      "forum_tip",
		SenderID:    from.UserID,
		RecipientID: to.UserID,
	}
	if content != nil {
		md.ThreadID = content.ThreadID
		md.PostID = content.PostID
	}
	return b.withIntentMetadata(md, "threadId", "postId")
}

// Rain debits total from the sender; metadata records the per-participant
// share computed with guarded division.
func (b *Builder) Rain(total amount.DGT, from Party, participants int) *Builder {
	b.intent(TypeRain, total, from.WalletID)
	share, err := amount.DivideBy(total, int64(participants))
	if err != nil {
		b.metadata = nil
		return b.fail(err)
	}
	return b.withIntentMetadata(RainMetadata{
		Source:           "rain",
		SenderID:         from.UserID,
		ParticipantCount: participants,
		AmountPerUser:    share.String(),
	})
}

func (b *Builder) ShopPurchase(amt amount.DGT, user Party, itemID string) *Builder {
	b.intent(TypeShopPurchase, amt, user.WalletID)
	return b.withIntentMetadata(ShopPurchaseMetadata{
		Source: "shop",
		UserID: user.UserID,
		ItemID: strings.TrimSpace(itemID),
	})
}

// CryptoDeposit credits tokens bought externally for usd. The implied
// exchange rate and the USD amount are kept on the record for audit.
func (b *Builder) CryptoDeposit(tokens amount.DGT, usd amount.USD, user Party, originalToken string) *Builder {
	b.intent(TypeDeposit, tokens, user.WalletID)
	rate, err := amount.RateOf(usd, tokens)
	if err != nil {
		b.metadata = nil
		return b.fail(err)
	}
	b.WithUSD(usd).WithExchangeRate(rate)
	return b.withIntentMetadata(DepositMetadata{
		Source:        "crypto_deposit",
		UserID:        user.UserID,
		OriginalToken: strings.TrimSpace(originalToken),
		TokenAmount:   tokens.String(),
		USDAmount:     usd.String(),
		ExchangeRate:  rate.String(),
	})
}

// AdminAdjustment records an operator-initiated credit or debit. The admin
// and reason are mandatory and always land in metadata.
func (b *Builder) AdminAdjustment(amt amount.DGT, user Party, adminID int64, reason string, isCredit bool) *Builder {
	b.intent(TypeAdminAdjustment, amt, user.WalletID)
	direction := "debit"
	if isCredit {
		direction = "credit"
	}
	return b.withIntentMetadata(AdminAdjustmentMetadata{
		Source:    "admin",
		UserID:    user.UserID,
		AdminID:   adminID,
		Reason:    strings.TrimSpace(reason),
		IsCredit:  isCredit,
		Direction: direction,
	})
}

// Withdrawal settles funds previously reserved for an outbound payout.
func (b *Builder) Withdrawal(amt amount.DGT, user Party, destination string) *Builder {
	b.intent(TypeWithdrawal, amt, user.WalletID)
	return b.withIntentMetadata(WithdrawalMetadata{
		Source:      "withdrawal",
		UserID:      user.UserID,
		Destination: strings.TrimSpace(destination),
	})
}
