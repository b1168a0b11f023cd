package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	db "github.com/degentalk/dgt-ledger/db/sqlc"
	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/degentalk/dgt-ledger/internal/transaction"
	"github.com/degentalk/dgt-ledger/internal/wallet/domain"
	"github.com/degentalk/dgt-ledger/internal/wallet/repository"
	"github.com/degentalk/dgt-ledger/services/cache"
	"github.com/degentalk/dgt-ledger/services/monitoring/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrTransactionMismatch = fmt.Errorf("transaction does not match operation")

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// BalanceManager is the only writer of wallet balances and transaction
// records. Every mutation runs in one storage transaction holding row locks
// on each wallet it touches.
type BalanceManager struct {
	store     db.TxStore
	logger    *logging.Logger
	wallets   *cache.WalletIDCache
	feeWallet uuid.NullUUID
	policy    amount.Policy
}

type Option func(*BalanceManager)

// WithFeeWallet routes fees to a treasury wallet instead of burning them.
func WithFeeWallet(id uuid.UUID) Option {
	return func(m *BalanceManager) {
		m.feeWallet = uuid.NullUUID{UUID: id, Valid: true}
	}
}

// WithPolicy sets the tip and rain limits. DefaultPolicy applies otherwise.
func WithPolicy(p amount.Policy) Option {
	return func(m *BalanceManager) {
		m.policy = p
	}
}

func WithWalletCache(c *cache.WalletIDCache) Option {
	return func(m *BalanceManager) {
		m.wallets = c
	}
}

func NewBalanceManager(store db.TxStore, logger *logging.Logger, opts ...Option) *BalanceManager {
	m := &BalanceManager{
		store:  store,
		logger: logger,
		policy: amount.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.NewDiscardLogger()
	}
	if m.wallets == nil {
		m.wallets = cache.Shared()
	}
	return m
}

func (m *BalanceManager) reader() *repository.SQLWalletRepository {
	return repository.NewSQLWalletRepository(m.store)
}

func (m *BalanceManager) GetBalance(ctx context.Context, walletID uuid.UUID) (*domain.Balance, error) {
	w, err := m.reader().GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return w.Snapshot()
}

// HasSufficientBalance is advisory. Debit and Transfer check again under lock.
func (m *BalanceManager) HasSufficientBalance(ctx context.Context, walletID uuid.UUID, amt amount.DGT) (bool, error) {
	if amount.IsNegative(amt) {
		return false, amount.NewAmountError(amount.ErrInvalidAmount, "has_sufficient_balance", amt.String())
	}
	bal, err := m.GetBalance(ctx, walletID)
	if err != nil {
		return false, err
	}
	return amount.Cmp(bal.Available, amt) >= 0, nil
}

// Debit removes the transaction's gross amount from walletID.
func (m *BalanceManager) Debit(ctx context.Context, walletID uuid.UUID, amt amount.DGT, tx transaction.Transaction) (*transaction.Record, error) {
	const op = "debit"
	if err := m.checkSingleSided(op, walletID, amt, tx, false); err != nil {
		return nil, err
	}
	return m.apply(ctx, op, walletID, tx, []uuid.UUID{walletID}, func(locked map[uuid.UUID]*domain.WalletModel) error {
		return withdraw(locked[walletID], tx.Amount())
	})
}

// Credit adds the transaction's net amount to walletID. It can only fail on
// a missing wallet or storage.
func (m *BalanceManager) Credit(ctx context.Context, walletID uuid.UUID, amt amount.DGT, tx transaction.Transaction) (*transaction.Record, error) {
	const op = "credit"
	if err := m.checkSingleSided(op, walletID, amt, tx, true); err != nil {
		return nil, err
	}
	return m.apply(ctx, op, walletID, tx, []uuid.UUID{walletID}, func(locked map[uuid.UUID]*domain.WalletModel) error {
		w := locked[walletID]
		w.Balance = amount.Add(w.Balance, tx.NetAmount())
		return nil
	})
}

// Transfer moves the gross amount out of fromID and the net amount into toID.
// Both rows are locked in the global wallet order whichever side is the
// source.
func (m *BalanceManager) Transfer(ctx context.Context, fromID, toID uuid.UUID, amt amount.DGT, tx transaction.Transaction) (*transaction.Record, error) {
	const op = "transfer"
	if fromID == toID {
		return nil, transaction.ErrSameWallet
	}
	if err := m.checkCommon(op, amt, tx); err != nil {
		return nil, err
	}
	if !tx.IsTwoSided() || tx.FromWallet() != fromID || tx.ToWallet().UUID != toID {
		return nil, fmt.Errorf("%w: %s expects %s -> %s", ErrTransactionMismatch, op, fromID, toID)
	}
	return m.apply(ctx, op, fromID, tx, []uuid.UUID{fromID, toID}, func(locked map[uuid.UUID]*domain.WalletModel) error {
		if err := withdraw(locked[fromID], tx.Amount()); err != nil {
			return err
		}
		to := locked[toID]
		to.Balance = amount.Add(to.Balance, tx.NetAmount())
		return nil
	})
}

// SettleLocked debits funds that were reserved with LockAmount, reducing
// balance and locked balance together.
func (m *BalanceManager) SettleLocked(ctx context.Context, walletID uuid.UUID, amt amount.DGT, tx transaction.Transaction) (*transaction.Record, error) {
	const op = "settle_locked"
	if err := m.checkSingleSided(op, walletID, amt, tx, false); err != nil {
		return nil, err
	}
	gross := tx.Amount()
	record, err := m.apply(ctx, op, walletID, tx, []uuid.UUID{walletID}, func(locked map[uuid.UUID]*domain.WalletModel) error {
		w := locked[walletID]
		remaining, err := amount.Subtract(w.LockedBalance, gross)
		if err != nil {
			return domain.NewWalletError(domain.ErrInsufficientLocked, walletID.String(), err)
		}
		balance, err := amount.Subtract(w.Balance, gross)
		if err != nil {
			return domain.NewWalletError(domain.ErrCorruptBalance, walletID.String(), err)
		}
		w.LockedBalance = remaining
		w.Balance = balance
		return nil
	}, func(ctx context.Context, repo repository.WalletRepository, locked map[uuid.UUID]*domain.WalletModel) error {
		return repo.RecordLockEvent(ctx, walletID, repository.LockActionSettle, gross, locked[walletID].LockedBalance,
			string(tx.Type()), map[string]any{"txType": string(tx.Type())})
	})
	return record, err
}

// LockAmount reserves amt of the available balance. It reports false when
// the wallet cannot cover it; that is a normal outcome, not an error.
func (m *BalanceManager) LockAmount(ctx context.Context, walletID uuid.UUID, amt amount.DGT, reason string) (bool, error) {
	const op = "lock"
	if !amount.IsPositive(amt) {
		return false, amount.NewAmountError(amount.ErrInvalidAmount, op, amt.String())
	}
	entry := m.entry(op, walletID, amt)

	var ok bool
	err := m.withLocked(ctx, []uuid.UUID{walletID}, func(txCtx context.Context, repo repository.WalletRepository, locked map[uuid.UUID]*domain.WalletModel) error {
		w := locked[walletID]
		available, err := w.Available()
		if err != nil {
			return domain.NewWalletError(domain.ErrCorruptBalance, walletID.String(), err)
		}
		if amount.Cmp(available, amt) < 0 {
			return nil
		}
		w.LockedBalance = amount.Add(w.LockedBalance, amt)
		if _, err := repo.SaveBalances(txCtx, w); err != nil {
			return err
		}
		ok = true
		return repo.RecordLockEvent(txCtx, walletID, repository.LockActionLock, amt, w.LockedBalance, reason, nil)
	})
	if err != nil {
		return false, m.fail(entry, op, walletID, amt, err)
	}
	if !ok {
		entry.WithField("reason", reason).Info("lock declined, insufficient available balance")
		return false, nil
	}
	entry.WithField("reason", reason).Info("amount locked")
	return true, nil
}

// UnlockAmount releases a reservation. Asking to release more than is locked
// is reported and declined; locked balance never goes negative.
func (m *BalanceManager) UnlockAmount(ctx context.Context, walletID uuid.UUID, amt amount.DGT, reason string) (bool, error) {
	const op = "unlock"
	if !amount.IsPositive(amt) {
		return false, amount.NewAmountError(amount.ErrInvalidAmount, op, amt.String())
	}
	entry := m.entry(op, walletID, amt)

	var ok bool
	var lockedNow amount.DGT
	err := m.withLocked(ctx, []uuid.UUID{walletID}, func(txCtx context.Context, repo repository.WalletRepository, locked map[uuid.UUID]*domain.WalletModel) error {
		w := locked[walletID]
		lockedNow = w.LockedBalance
		remaining, err := amount.Subtract(w.LockedBalance, amt)
		if err != nil {
			return nil
		}
		w.LockedBalance = remaining
		if _, err := repo.SaveBalances(txCtx, w); err != nil {
			return err
		}
		ok = true
		return repo.RecordLockEvent(txCtx, walletID, repository.LockActionUnlock, amt, remaining, reason, nil)
	})
	if err != nil {
		return false, m.fail(entry, op, walletID, amt, err)
	}
	if !ok {
		entry.WithFields(logrus.Fields{"locked": lockedNow.String(), "reason": reason}).
			Warn("unlock declined, amount exceeds locked balance")
		return false, nil
	}
	entry.WithField("reason", reason).Info("amount unlocked")
	return true, nil
}

// GetWalletByUserID reports false when the user has no wallet yet. Only the
// user to wallet mapping is cached; the wallet itself is always read fresh.
func (m *BalanceManager) GetWalletByUserID(ctx context.Context, userID int64) (*domain.WalletModel, bool, error) {
	repo := m.reader()
	if id, ok := m.wallets.Get(userID); ok {
		w, err := repo.GetWallet(ctx, id)
		if err == nil {
			return w, true, nil
		}
		if !errors.Is(err, domain.ErrWalletNotFound) {
			return nil, false, err
		}
	}

	w, err := repo.GetWalletByUserID(ctx, userID)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	m.wallets.Insert(userID, w.ID)
	return w, true, nil
}

// CreateWallet provisions the user's wallet, returning the existing one if
// it is already there.
func (m *BalanceManager) CreateWallet(ctx context.Context, userID int64) (*domain.WalletModel, error) {
	w, created, err := m.reader().CreateWallet(ctx, userID)
	if err != nil {
		m.logger.Op("create_wallet").WithField(logging.FieldUserID, userID).WithError(err).Error("could not create wallet")
		return nil, err
	}
	if created {
		m.logger.Op("create_wallet").WithFields(logrus.Fields{
			logging.FieldUserID:   userID,
			logging.FieldWalletID: w.ID.String(),
		}).Info("wallet created")
	}
	m.wallets.Insert(userID, w.ID)
	return w, nil
}

func (m *BalanceManager) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Record, error) {
	return m.reader().GetTransaction(ctx, id)
}

// ListTransactions returns the wallet's history, newest first, on either
// side of the transfer.
func (m *BalanceManager) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int32) ([]*transaction.Record, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return m.reader().ListTransactions(ctx, walletID, limit, offset)
}

// ListLockEvents returns the lock, unlock and settle history of a wallet,
// newest first.
func (m *BalanceManager) ListLockEvents(ctx context.Context, walletID uuid.UUID, limit int32) ([]*domain.LockEvent, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return m.reader().ListLockEvents(ctx, walletID, limit)
}

type (
	mutation  func(locked map[uuid.UUID]*domain.WalletModel) error
	lockedFn  func(ctx context.Context, repo repository.WalletRepository, locked map[uuid.UUID]*domain.WalletModel) error
	afterSave = lockedFn
)

// apply is the shared path for every balance mutation: lock, mutate, route
// the fee, save each touched wallet, then append the record stamped
// confirmed.
func (m *BalanceManager) apply(ctx context.Context, op string, walletID uuid.UUID, tx transaction.Transaction, ids []uuid.UUID, mutate mutation, after ...afterSave) (*transaction.Record, error) {
	entry := m.entry(op, walletID, tx.Amount()).WithField(logging.FieldTxType, string(tx.Type()))

	fee := amount.FeeAsDGT(tx.Fee())
	toTreasury := m.feeWallet.Valid && amount.IsPositive(fee)
	if toTreasury {
		ids = append(ids, m.feeWallet.UUID)
	}

	var record *transaction.Record
	err := m.withLocked(ctx, ids, func(txCtx context.Context, repo repository.WalletRepository, locked map[uuid.UUID]*domain.WalletModel) error {
		if err := mutate(locked); err != nil {
			return err
		}
		if toTreasury {
			t := locked[m.feeWallet.UUID]
			t.Balance = amount.Add(t.Balance, fee)
		}
		for _, id := range lockOrder(ids...) {
			if _, err := repo.SaveBalances(txCtx, locked[id]); err != nil {
				return err
			}
		}
		for _, fn := range after {
			if err := fn(txCtx, repo, locked); err != nil {
				return err
			}
		}

		var err error
		record, err = repo.InsertTransaction(txCtx, tx.Stamp(transaction.StatusConfirmed))
		return err
	})
	if err != nil {
		return nil, m.fail(entry, op, walletID, tx.Amount(), err)
	}

	entry.WithFields(logrus.Fields{
		"tx_id": record.ID.String(),
		"fee":   tx.Fee().String(),
	}).Info("transaction applied")
	return record, nil
}

// withLocked opens a storage transaction and takes FOR UPDATE locks on ids
// in ascending order before running fn. Once begun, the transaction is not
// tied to the caller's cancellation.
func (m *BalanceManager) withLocked(ctx context.Context, ids []uuid.UUID, fn lockedFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txCtx := context.WithoutCancel(ctx)

	return m.store.ExecTx(txCtx, func(q db.Querier) error {
		repo := repository.NewSQLWalletRepository(q)
		locked := make(map[uuid.UUID]*domain.WalletModel, len(ids))
		for _, id := range lockOrder(ids...) {
			w, err := repo.LockWallet(txCtx, id)
			if err != nil {
				return err
			}
			locked[id] = w
		}
		return fn(txCtx, repo, locked)
	})
}

// lockOrder de-duplicates ids and sorts them by their bytes, matching the
// uuid ordering PostgreSQL uses.
func lockOrder(ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return out
}

func withdraw(w *domain.WalletModel, gross amount.DGT) error {
	available, err := w.Available()
	if err != nil {
		return domain.NewWalletError(domain.ErrCorruptBalance, w.ID.String(), err)
	}
	if amount.Cmp(available, gross) < 0 {
		return domain.NewWalletError(domain.ErrInsufficientFunds, w.ID.String())
	}
	balance, err := amount.Subtract(w.Balance, gross)
	if err != nil {
		return err
	}
	w.Balance = balance
	return nil
}

func (m *BalanceManager) checkCommon(op string, amt amount.DGT, tx transaction.Transaction) error {
	if !amount.IsPositive(amt) {
		return amount.NewAmountError(amount.ErrInvalidAmount, op, amt.String())
	}
	if !amount.Equal(amt, tx.Amount()) {
		return fmt.Errorf("%w: %s amount %s, transaction amount %s", ErrTransactionMismatch, op, amt, tx.Amount())
	}
	if tx.Status() != transaction.StatusPending {
		return fmt.Errorf("%w: %s needs a pending transaction, got %s", ErrTransactionMismatch, op, tx.Status())
	}
	return m.checkPolicy(tx)
}

// checkPolicy applies the platform tip and rain limits. These are business
// outcomes and are not logged.
func (m *BalanceManager) checkPolicy(tx transaction.Transaction) error {
	switch tx.Type() {
	case transaction.TypeTip:
		return m.policy.ValidateTip(tx.Amount())
	case transaction.TypeRain:
		return m.policy.ValidateRain(tx.Amount())
	}
	return nil
}

func (m *BalanceManager) checkSingleSided(op string, walletID uuid.UUID, amt amount.DGT, tx transaction.Transaction, credit bool) error {
	if err := m.checkCommon(op, amt, tx); err != nil {
		return err
	}
	if isCredit, ok := tx.AdjustmentDirection(); ok && isCredit != credit {
		return fmt.Errorf("%w: %s cannot apply an adjustment built with isCredit=%t", ErrTransactionMismatch, op, isCredit)
	}
	if tx.IsTwoSided() {
		return fmt.Errorf("%w: %s cannot apply a two-sided %s transaction", ErrTransactionMismatch, op, tx.Type())
	}
	if tx.FromWallet() != walletID {
		return fmt.Errorf("%w: %s on wallet %s, transaction names %s", ErrTransactionMismatch, op, walletID, tx.FromWallet())
	}
	return nil
}

func (m *BalanceManager) entry(op string, walletID uuid.UUID, amt amount.DGT) *logrus.Entry {
	return m.logger.Op(op).WithFields(logrus.Fields{
		logging.FieldWalletID: walletID.String(),
		logging.FieldAmount:   amt.String(),
	})
}

// fail logs err at a severity matching its kind and wraps it with the
// operation context.
func (m *BalanceManager) fail(entry *logrus.Entry, op string, walletID uuid.UUID, amt amount.DGT, err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		entry.Info("rejected, insufficient funds")
	case errors.Is(err, domain.ErrWalletNotFound), errors.Is(err, domain.ErrInsufficientLocked):
		entry.WithError(err).Warn("consistency failure")
	default:
		entry.WithError(err).Error("storage failure")
	}
	return fmt.Errorf("%s wallet %s amount %s: %w", op, walletID, amt, err)
}
