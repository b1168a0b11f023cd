package domain

import (
	"time"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/google/uuid"
)

const StatusActive = "active"

type WalletModel struct {
	ID            uuid.UUID  `json:"id"`
	UserID        int64      `json:"user_id"`
	Balance       amount.DGT `json:"balance"`
	LockedBalance amount.DGT `json:"locked_balance"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Available is balance minus locked. A row where locked exceeds balance is
// corrupt and reported as such rather than clamped.
func (w *WalletModel) Available() (amount.DGT, error) {
	return amount.Subtract(w.Balance, w.LockedBalance)
}

// Balance is a point-in-time view of a wallet.
type Balance struct {
	WalletID  uuid.UUID  `json:"wallet_id"`
	Balance   amount.DGT `json:"balance"`
	Locked    amount.DGT `json:"locked"`
	Available amount.DGT `json:"available"`
}

func (w *WalletModel) Snapshot() (*Balance, error) {
	available, err := w.Available()
	if err != nil {
		return nil, NewWalletError(ErrCorruptBalance, w.ID.String(), err)
	}
	return &Balance{
		WalletID:  w.ID,
		Balance:   w.Balance,
		Locked:    w.LockedBalance,
		Available: available,
	}, nil
}
