package transaction

import (
	"encoding/json"
	"time"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/google/uuid"
)

// Type tags a transaction. The set is open: the ledger never branches on
// unknown values, it only needs to know which types move funds between two
// wallets.
type Type string

const (
	TypeTip             Type = "tip"
	TypeRain            Type = "rain"
	TypeShopPurchase    Type = "shop_purchase"
	TypeDeposit         Type = "deposit"
	TypeWithdrawal      Type = "withdrawal"
	TypeAdminAdjustment Type = "admin_adjustment"
	TypeTransfer        Type = "transfer"
)

// RequiresDestination reports whether a transaction of this type must name a
// destination wallet.
func (t Type) RequiresDestination() bool {
	switch t {
	case TypeTip, TypeTransfer:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Party identifies a user together with the wallet the ledger should touch
// on their behalf.
type Party struct {
	UserID   int64
	WalletID uuid.UUID
}

// MetadataSourceKey is always present in a transaction's metadata.
const MetadataSourceKey = "source"

// Transaction is a fully validated, immutable transaction produced by
// Builder.Build. It has no ID until the balance manager persists it.
type Transaction struct {
	txType    Type
	amount    amount.DGT
	fee       amount.Fee
	net       amount.DGT
	from      uuid.UUID
	to        uuid.NullUUID
	status    Status
	metadata  map[string]any
	usd       *amount.USD
	rate      *amount.Rate
	createdAt time.Time
}

func (t Transaction) Type() Type               { return t.txType }
func (t Transaction) Amount() amount.DGT       { return t.amount }
func (t Transaction) Fee() amount.Fee          { return t.fee }
func (t Transaction) NetAmount() amount.DGT    { return t.net }
func (t Transaction) FromWallet() uuid.UUID    { return t.from }
func (t Transaction) ToWallet() uuid.NullUUID  { return t.to }
func (t Transaction) Status() Status           { return t.status }
func (t Transaction) CreatedAt() time.Time     { return t.createdAt }
func (t Transaction) IsTwoSided() bool         { return t.to.Valid }
func (t Transaction) Metadata() map[string]any { return copyMap(t.metadata) }

func (t Transaction) USDAmount() (amount.USD, bool) {
	if t.usd == nil {
		return amount.USD{}, false
	}
	return *t.usd, true
}

func (t Transaction) ExchangeRate() (amount.Rate, bool) {
	if t.rate == nil {
		return amount.Rate{}, false
	}
	return *t.rate, true
}

// AdjustmentDirection reports whether an admin adjustment was built as a
// credit. ok is false for other types and for adjustments without the flag.
func (t Transaction) AdjustmentDirection() (isCredit, ok bool) {
	if t.txType != TypeAdminAdjustment {
		return false, false
	}
	isCredit, ok = t.metadata["isCredit"].(bool)
	return isCredit, ok
}

// MetadataJSON encodes the metadata for the JSONB column.
func (t Transaction) MetadataJSON() (json.RawMessage, error) {
	return json.Marshal(t.metadata)
}

// Stamp returns a copy carrying the given status. The balance manager uses it
// to mark a transaction confirmed as it commits.
func (t Transaction) Stamp(s Status) Transaction {
	t.status = s
	t.metadata = copyMap(t.metadata)
	return t
}

// Record is a persisted transaction as read back from the audit trail.
type Record struct {
	ID           uuid.UUID       `json:"id"`
	Type         Type            `json:"type"`
	Amount       amount.DGT      `json:"amount"`
	Fee          amount.Fee      `json:"fee"`
	NetAmount    amount.DGT      `json:"net_amount"`
	FromWalletID uuid.UUID       `json:"from_wallet_id"`
	ToWalletID   uuid.NullUUID   `json:"to_wallet_id"`
	Status       Status          `json:"status"`
	Metadata     json.RawMessage `json:"metadata"`
	USDAmount    *amount.USD     `json:"usd_amount,omitempty"`
	ExchangeRate *amount.Rate    `json:"exchange_rate,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = copyValue(val[i])
		}
		return out
	default:
		return val
	}
}
