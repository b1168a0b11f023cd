package mapper

import (
	"database/sql"
	"fmt"

	db "github.com/degentalk/dgt-ledger/db/sqlc"
	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/degentalk/dgt-ledger/internal/transaction"
	"github.com/degentalk/dgt-ledger/internal/wallet/domain"
)

// ToWalletModel parses the numeric columns. A value that fails to parse is
// returned as an error, never as zero.
func ToWalletModel(wallet db.Wallet) (*domain.WalletModel, error) {
	balance, err := amount.ToDGT(wallet.Balance)
	if err != nil {
		return nil, fmt.Errorf("wallet %s balance: %w", wallet.ID, err)
	}
	locked, err := amount.ToDGT(wallet.LockedBalance)
	if err != nil {
		return nil, fmt.Errorf("wallet %s locked balance: %w", wallet.ID, err)
	}

	return &domain.WalletModel{
		ID:            wallet.ID,
		UserID:        wallet.UserID,
		Balance:       balance,
		LockedBalance: locked,
		Status:        wallet.Status,
		CreatedAt:     wallet.CreatedAt,
		UpdatedAt:     wallet.UpdatedAt,
	}, nil
}

func ToBalanceParams(w *domain.WalletModel) db.UpdateWalletBalancesParams {
	return db.UpdateWalletBalancesParams{
		ID:            w.ID,
		Balance:       w.Balance.String(),
		LockedBalance: w.LockedBalance.String(),
	}
}

func ToCreateTransactionParams(tx transaction.Transaction) (db.CreateLedgerTransactionParams, error) {
	metadata, err := tx.MetadataJSON()
	if err != nil {
		return db.CreateLedgerTransactionParams{}, fmt.Errorf("encode metadata: %w", err)
	}

	params := db.CreateLedgerTransactionParams{
		Type:         string(tx.Type()),
		Amount:       tx.Amount().String(),
		Fee:          tx.Fee().String(),
		NetAmount:    tx.NetAmount().String(),
		FromWalletID: tx.FromWallet(),
		ToWalletID:   tx.ToWallet(),
		Status:       string(tx.Status()),
		Metadata:     metadata,
		CreatedAt:    tx.CreatedAt(),
	}
	if usd, ok := tx.USDAmount(); ok {
		params.UsdAmount = sql.NullString{String: usd.String(), Valid: true}
	}
	if rate, ok := tx.ExchangeRate(); ok {
		params.ExchangeRate = sql.NullString{String: rate.String(), Valid: true}
	}
	return params, nil
}

func ToRecord(row db.LedgerTransaction) (*transaction.Record, error) {
	gross, err := amount.ToDGT(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s amount: %w", row.ID, err)
	}
	fee, err := amount.ToFee(row.Fee)
	if err != nil {
		return nil, fmt.Errorf("transaction %s fee: %w", row.ID, err)
	}
	net, err := amount.ToDGT(row.NetAmount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s net amount: %w", row.ID, err)
	}

	record := &transaction.Record{
		ID:           row.ID,
		Type:         transaction.Type(row.Type),
		Amount:       gross,
		Fee:          fee,
		NetAmount:    net,
		FromWalletID: row.FromWalletID,
		ToWalletID:   row.ToWalletID,
		Status:       transaction.Status(row.Status),
		Metadata:     row.Metadata,
		CreatedAt:    row.CreatedAt,
	}
	if row.UsdAmount.Valid {
		usd, err := amount.ToUSD(row.UsdAmount.String)
		if err != nil {
			return nil, fmt.Errorf("transaction %s usd amount: %w", row.ID, err)
		}
		record.USDAmount = &usd
	}
	if row.ExchangeRate.Valid {
		rate, err := amount.ToRate(row.ExchangeRate.String)
		if err != nil {
			return nil, fmt.Errorf("transaction %s exchange rate: %w", row.ID, err)
		}
		record.ExchangeRate = &rate
	}
	return record, nil
}

func ToRecords(rows []db.LedgerTransaction) ([]*transaction.Record, error) {
	records := make([]*transaction.Record, 0, len(rows))
	for _, row := range rows {
		r, err := ToRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func ToLockEvent(row db.WalletLockEvent) (*domain.LockEvent, error) {
	amt, err := amount.ToDGT(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("lock event %d amount: %w", row.ID, err)
	}
	lockedAfter, err := amount.ToDGT(row.LockedAfter)
	if err != nil {
		return nil, fmt.Errorf("lock event %d locked after: %w", row.ID, err)
	}
	event := &domain.LockEvent{
		ID:          row.ID,
		WalletID:    row.WalletID,
		Action:      row.Action,
		Amount:      amt,
		LockedAfter: lockedAfter,
		Reason:      row.Reason,
		CreatedAt:   row.CreatedAt,
	}
	if row.Metadata.Valid {
		event.Metadata = row.Metadata.RawMessage
	}
	return event, nil
}
