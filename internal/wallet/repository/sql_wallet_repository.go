package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	db "github.com/degentalk/dgt-ledger/db/sqlc"
	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/degentalk/dgt-ledger/internal/transaction"
	"github.com/degentalk/dgt-ledger/internal/wallet/domain"
	"github.com/degentalk/dgt-ledger/internal/wallet/mapper"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type SQLWalletRepository struct {
	queries db.Querier
}

func NewSQLWalletRepository(queries db.Querier) *SQLWalletRepository {
	return &SQLWalletRepository{queries: queries}
}

func notFound(err error, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewWalletError(domain.ErrWalletNotFound, id, err)
	}
	return err
}

func (r *SQLWalletRepository) GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.WalletModel, error) {
	w, err := r.queries.GetWallet(ctx, walletID)
	if err != nil {
		return nil, notFound(err, walletID.String())
	}
	return mapper.ToWalletModel(w)
}

func (r *SQLWalletRepository) GetWalletByUserID(ctx context.Context, userID int64) (*domain.WalletModel, error) {
	w, err := r.queries.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user:%d", userID))
	}
	return mapper.ToWalletModel(w)
}

// LockWallet reads the wallet with SELECT ... FOR UPDATE. It only makes
// sense on a repository bound to an open transaction.
func (r *SQLWalletRepository) LockWallet(ctx context.Context, walletID uuid.UUID) (*domain.WalletModel, error) {
	w, err := r.queries.GetWalletForUpdate(ctx, walletID)
	if err != nil {
		return nil, notFound(err, walletID.String())
	}
	return mapper.ToWalletModel(w)
}

// CreateWallet inserts a wallet for userID, or returns the existing one. The
// bool reports whether a row was created.
func (r *SQLWalletRepository) CreateWallet(ctx context.Context, userID int64) (*domain.WalletModel, bool, error) {
	w, err := r.queries.CreateWallet(ctx, userID)
	if err == nil {
		model, err := mapper.ToWalletModel(w)
		return model, true, err
	}
	// ON CONFLICT DO NOTHING returns no row for an existing wallet
	if !errors.Is(err, sql.ErrNoRows) && !db.IsUniqueViolation(err) {
		return nil, false, domain.NewWalletError(domain.ErrWalletNotPossible, fmt.Sprintf("user:%d", userID), err)
	}
	existing, err := r.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *SQLWalletRepository) SaveBalances(ctx context.Context, wallet *domain.WalletModel) (*domain.WalletModel, error) {
	w, err := r.queries.UpdateWalletBalances(ctx, mapper.ToBalanceParams(wallet))
	if err != nil {
		return nil, notFound(err, wallet.ID.String())
	}
	return mapper.ToWalletModel(w)
}

func (r *SQLWalletRepository) InsertTransaction(ctx context.Context, tx transaction.Transaction) (*transaction.Record, error) {
	params, err := mapper.ToCreateTransactionParams(tx)
	if err != nil {
		return nil, err
	}
	row, err := r.queries.CreateLedgerTransaction(ctx, params)
	if err != nil {
		return nil, err
	}
	return mapper.ToRecord(row)
}

func (r *SQLWalletRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Record, error) {
	row, err := r.queries.GetLedgerTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}
		return nil, err
	}
	return mapper.ToRecord(row)
}

func (r *SQLWalletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int32) ([]*transaction.Record, error) {
	rows, err := r.queries.ListLedgerTransactionsByWallet(ctx, db.ListLedgerTransactionsByWalletParams{
		FromWalletID: walletID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, err
	}
	return mapper.ToRecords(rows)
}

func (r *SQLWalletRepository) RecordLockEvent(ctx context.Context, walletID uuid.UUID, action LockAction, amt, lockedAfter amount.DGT, reason string, metadata map[string]any) error {
	var raw pqtype.NullRawMessage
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encode lock metadata: %w", err)
		}
		raw = pqtype.NullRawMessage{RawMessage: b, Valid: true}
	}
	_, err := r.queries.CreateWalletLockEvent(ctx, db.CreateWalletLockEventParams{
		WalletID:    walletID,
		Action:      string(action),
		Amount:      amt.String(),
		LockedAfter: lockedAfter.String(),
		Reason:      reason,
		Metadata:    raw,
	})
	return err
}

// ListLockEvents returns the wallet's reservation history, newest first.
func (r *SQLWalletRepository) ListLockEvents(ctx context.Context, walletID uuid.UUID, limit int32) ([]*domain.LockEvent, error) {
	rows, err := r.queries.ListWalletLockEvents(ctx, db.ListWalletLockEventsParams{WalletID: walletID, Limit: limit})
	if err != nil {
		return nil, err
	}
	events := make([]*domain.LockEvent, 0, len(rows))
	for _, row := range rows {
		e, err := mapper.ToLockEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

var _ WalletRepository = (*SQLWalletRepository)(nil)
