package domain

import (
	"encoding/json"
	"time"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/google/uuid"
)

// LockEvent is one entry of a wallet's reservation history.
type LockEvent struct {
	ID          int64           `json:"id"`
	WalletID    uuid.UUID       `json:"wallet_id"`
	Action      string          `json:"action"`
	Amount      amount.DGT      `json:"amount"`
	LockedAfter amount.DGT      `json:"locked_after"`
	Reason      string          `json:"reason"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
