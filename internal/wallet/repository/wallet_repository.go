package repository

import (
	"context"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/degentalk/dgt-ledger/internal/transaction"
	"github.com/degentalk/dgt-ledger/internal/wallet/domain"
	"github.com/google/uuid"
)

type LockAction string

const (
	LockActionLock   LockAction = "lock"
	LockActionUnlock LockAction = "unlock"
	LockActionSettle LockAction = "settle"
)

// WalletRepository is the view of storage the balance manager works
// through. Within ExecTx it is bound to the open database transaction.
type WalletRepository interface {
	GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.WalletModel, error)
	GetWalletByUserID(ctx context.Context, userID int64) (*domain.WalletModel, error)
	LockWallet(ctx context.Context, walletID uuid.UUID) (*domain.WalletModel, error)
	CreateWallet(ctx context.Context, userID int64) (*domain.WalletModel, bool, error)
	SaveBalances(ctx context.Context, wallet *domain.WalletModel) (*domain.WalletModel, error)
	InsertTransaction(ctx context.Context, tx transaction.Transaction) (*transaction.Record, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Record, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int32) ([]*transaction.Record, error)
	RecordLockEvent(ctx context.Context, walletID uuid.UUID, action LockAction, amt, lockedAfter amount.DGT, reason string, metadata map[string]any) error
	ListLockEvents(ctx context.Context, walletID uuid.UUID, limit int32) ([]*domain.LockEvent, error)
}
