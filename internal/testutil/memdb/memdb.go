// Package memdb is an in-memory db.TxStore for tests. It keeps the parts of
// PostgreSQL the ledger depends on: FOR UPDATE row locks held until the end
// of the transaction, rollback of everything written inside a failed
// transaction, and the CHECK constraints from the migrations.
package memdb

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	db "github.com/degentalk/dgt-ledger/db/sqlc"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	wallets  map[uuid.UUID]db.Wallet
	byUser   map[int64]uuid.UUID
	txs      []db.LedgerTransaction
	events   []db.WalletLockEvent
	nextID   int64
	rowLocks map[uuid.UUID]chan struct{}
	failures map[string]error
}

func New() *Store {
	return &Store{
		wallets:  map[uuid.UUID]db.Wallet{},
		byUser:   map[int64]uuid.UUID{},
		rowLocks: map[uuid.UUID]chan struct{}{},
		failures: map[string]error{},
	}
}

// Seed inserts a wallet directly, bypassing the ledger.
func (s *Store) Seed(userID int64, balance, locked string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	w := db.Wallet{
		ID:            uuid.New(),
		UserID:        userID,
		Balance:       balance,
		LockedBalance: locked,
		Status:        "active",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.wallets[w.ID] = w
	s.byUser[userID] = w.ID
	return w.ID
}

// FailOn makes the next call to method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *Store) failure(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failures[method]
	delete(s.failures, method)
	return err
}

func (s *Store) Wallet(id uuid.UUID) db.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[id]
}

func (s *Store) Transactions() []db.LedgerTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.txs)
}

func (s *Store) LockEvents() []db.WalletLockEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

func (s *Store) rowLock(id uuid.UUID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.rowLocks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[id] = ch
	}
	return ch
}

// ExecTx stages every write and applies them together on success. Row locks
// taken with GetWalletForUpdate are released when fn returns.
func (s *Store) ExecTx(ctx context.Context, fn func(q db.Querier) error) error {
	tx := &txQuerier{
		store:   s,
		wallets: map[uuid.UUID]db.Wallet{},
		held:    map[uuid.UUID]chan struct{}{},
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	if err := s.failure("Commit"); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range tx.wallets {
		s.wallets[id] = w
		s.byUser[w.UserID] = id
	}
	s.txs = append(s.txs, tx.txs...)
	s.events = append(s.events, tx.events...)
	return nil
}

var _ db.TxStore = (*Store)(nil)

// Outside a transaction each statement commits on its own.

func (s *Store) autocommit(fn func(q db.Querier) error) error {
	return s.ExecTx(context.Background(), fn)
}

func (s *Store) CreateLedgerTransaction(ctx context.Context, arg db.CreateLedgerTransactionParams) (db.LedgerTransaction, error) {
	var out db.LedgerTransaction
	err := s.autocommit(func(q db.Querier) (err error) {
		out, err = q.CreateLedgerTransaction(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) CreateWallet(ctx context.Context, userID int64) (db.Wallet, error) {
	var out db.Wallet
	err := s.autocommit(func(q db.Querier) (err error) {
		out, err = q.CreateWallet(ctx, userID)
		return err
	})
	return out, err
}

func (s *Store) CreateWalletLockEvent(ctx context.Context, arg db.CreateWalletLockEventParams) (db.WalletLockEvent, error) {
	var out db.WalletLockEvent
	err := s.autocommit(func(q db.Querier) (err error) {
		out, err = q.CreateWalletLockEvent(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) UpdateWalletBalances(ctx context.Context, arg db.UpdateWalletBalancesParams) (db.Wallet, error) {
	var out db.Wallet
	err := s.autocommit(func(q db.Querier) (err error) {
		out, err = q.UpdateWalletBalances(ctx, arg)
		return err
	})
	return out, err
}

func (s *Store) GetLedgerTransaction(ctx context.Context, id uuid.UUID) (db.LedgerTransaction, error) {
	return (&txQuerier{store: s}).GetLedgerTransaction(ctx, id)
}

func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) (db.Wallet, error) {
	return (&txQuerier{store: s}).GetWallet(ctx, id)
}

func (s *Store) GetWalletByUserID(ctx context.Context, userID int64) (db.Wallet, error) {
	return (&txQuerier{store: s}).GetWalletByUserID(ctx, userID)
}

func (s *Store) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (db.Wallet, error) {
	return s.GetWallet(ctx, id)
}

func (s *Store) ListLedgerTransactionsByWallet(ctx context.Context, arg db.ListLedgerTransactionsByWalletParams) ([]db.LedgerTransaction, error) {
	return (&txQuerier{store: s}).ListLedgerTransactionsByWallet(ctx, arg)
}

func (s *Store) ListWalletLockEvents(ctx context.Context, arg db.ListWalletLockEventsParams) ([]db.WalletLockEvent, error) {
	return (&txQuerier{store: s}).ListWalletLockEvents(ctx, arg)
}

func (s *Store) ListWallets(ctx context.Context, arg db.ListWalletsParams) ([]db.Wallet, error) {
	return (&txQuerier{store: s}).ListWallets(ctx, arg)
}

func (s *Store) SumLedgerTransactionsByType(ctx context.Context) ([]db.SumLedgerTransactionsByTypeRow, error) {
	return (&txQuerier{store: s}).SumLedgerTransactionsByType(ctx)
}

// txQuerier sees its own staged writes on top of committed state.
type txQuerier struct {
	store   *Store
	wallets map[uuid.UUID]db.Wallet
	txs     []db.LedgerTransaction
	events  []db.WalletLockEvent
	held    map[uuid.UUID]chan struct{}
}

func (t *txQuerier) release() {
	for _, ch := range t.held {
		<-ch
	}
	t.held = nil
}

func (t *txQuerier) wallet(id uuid.UUID) (db.Wallet, bool) {
	if w, ok := t.wallets[id]; ok {
		return w, true
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	w, ok := t.store.wallets[id]
	return w, ok
}

func (t *txQuerier) stage(w db.Wallet) {
	if t.wallets == nil {
		t.wallets = map[uuid.UUID]db.Wallet{}
	}
	t.wallets[w.ID] = w
}

func checkViolation(constraint string) error {
	return &pq.Error{
		Code:       db.CheckViolation,
		Message:    fmt.Sprintf("new row violates check constraint %q", constraint),
		Constraint: constraint,
	}
}

func parse(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &pq.Error{Code: "22P02", Message: fmt.Sprintf("invalid input syntax for type numeric: %q", v)}
	}
	return d, nil
}

func canonical(d decimal.Decimal) string { return d.StringFixed(8) }

func (t *txQuerier) CreateLedgerTransaction(ctx context.Context, arg db.CreateLedgerTransactionParams) (db.LedgerTransaction, error) {
	if err := t.store.failure("CreateLedgerTransaction"); err != nil {
		return db.LedgerTransaction{}, err
	}
	gross, err := parse(arg.Amount)
	if err != nil {
		return db.LedgerTransaction{}, err
	}
	fee, err := parse(arg.Fee)
	if err != nil {
		return db.LedgerTransaction{}, err
	}
	net, err := parse(arg.NetAmount)
	if err != nil {
		return db.LedgerTransaction{}, err
	}
	switch {
	case gross.IsNegative():
		return db.LedgerTransaction{}, checkViolation("ledger_transactions_amount_non_negative")
	case fee.IsNegative() || fee.GreaterThan(gross):
		return db.LedgerTransaction{}, checkViolation("ledger_transactions_fee_within_amount")
	case !net.Equal(gross.Sub(fee)):
		return db.LedgerTransaction{}, checkViolation("ledger_transactions_net_amount")
	}
	switch arg.Status {
	case "pending", "confirmed", "failed":
	default:
		return db.LedgerTransaction{}, checkViolation("ledger_transactions_status")
	}
	if _, ok := t.wallet(arg.FromWalletID); !ok {
		return db.LedgerTransaction{}, &pq.Error{Code: "23503", Message: "from_wallet_id violates foreign key"}
	}

	row := db.LedgerTransaction{
		ID:           uuid.New(),
		Type:         arg.Type,
		Amount:       canonical(gross),
		Fee:          canonical(fee),
		NetAmount:    canonical(net),
		FromWalletID: arg.FromWalletID,
		ToWalletID:   arg.ToWalletID,
		Status:       arg.Status,
		Metadata:     arg.Metadata,
		UsdAmount:    arg.UsdAmount,
		ExchangeRate: arg.ExchangeRate,
		CreatedAt:    arg.CreatedAt,
	}
	t.txs = append(t.txs, row)
	return row, nil
}

func (t *txQuerier) CreateWallet(ctx context.Context, userID int64) (db.Wallet, error) {
	t.store.mu.Lock()
	_, exists := t.store.byUser[userID]
	t.store.mu.Unlock()
	if exists {
		return db.Wallet{}, sql.ErrNoRows
	}
	for _, w := range t.wallets {
		if w.UserID == userID {
			return db.Wallet{}, sql.ErrNoRows
		}
	}
	now := time.Now()
	w := db.Wallet{
		ID:            uuid.New(),
		UserID:        userID,
		Balance:       canonical(decimal.Zero),
		LockedBalance: canonical(decimal.Zero),
		Status:        "active",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.stage(w)
	return w, nil
}

func (t *txQuerier) CreateWalletLockEvent(ctx context.Context, arg db.CreateWalletLockEventParams) (db.WalletLockEvent, error) {
	switch arg.Action {
	case "lock", "unlock", "settle":
	default:
		return db.WalletLockEvent{}, checkViolation("wallet_lock_events_action")
	}
	t.store.mu.Lock()
	t.store.nextID++
	id := t.store.nextID
	t.store.mu.Unlock()

	ev := db.WalletLockEvent{
		ID:          id,
		WalletID:    arg.WalletID,
		Action:      arg.Action,
		Amount:      arg.Amount,
		LockedAfter: arg.LockedAfter,
		Reason:      arg.Reason,
		Metadata:    arg.Metadata,
		CreatedAt:   time.Now(),
	}
	t.events = append(t.events, ev)
	return ev, nil
}

func (t *txQuerier) GetLedgerTransaction(ctx context.Context, id uuid.UUID) (db.LedgerTransaction, error) {
	for _, row := range t.txs {
		if row.ID == id {
			return row, nil
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, row := range t.store.txs {
		if row.ID == id {
			return row, nil
		}
	}
	return db.LedgerTransaction{}, sql.ErrNoRows
}

func (t *txQuerier) GetWallet(ctx context.Context, id uuid.UUID) (db.Wallet, error) {
	w, ok := t.wallet(id)
	if !ok {
		return db.Wallet{}, sql.ErrNoRows
	}
	return w, nil
}

func (t *txQuerier) GetWalletByUserID(ctx context.Context, userID int64) (db.Wallet, error) {
	for _, w := range t.wallets {
		if w.UserID == userID {
			return w, nil
		}
	}
	t.store.mu.Lock()
	id, ok := t.store.byUser[userID]
	t.store.mu.Unlock()
	if !ok {
		return db.Wallet{}, sql.ErrNoRows
	}
	return t.GetWallet(ctx, id)
}

// GetWalletForUpdate blocks until no other transaction holds the row.
func (t *txQuerier) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (db.Wallet, error) {
	if err := t.store.failure("GetWalletForUpdate"); err != nil {
		return db.Wallet{}, err
	}
	if _, ok := t.wallet(id); !ok {
		return db.Wallet{}, sql.ErrNoRows
	}
	if _, held := t.held[id]; !held {
		ch := t.store.rowLock(id)
		select {
		case ch <- struct{}{}:
		case <-ctx.Done():
			return db.Wallet{}, ctx.Err()
		}
		t.held[id] = ch
	}
	return t.GetWallet(ctx, id)
}

func (t *txQuerier) UpdateWalletBalances(ctx context.Context, arg db.UpdateWalletBalancesParams) (db.Wallet, error) {
	if err := t.store.failure("UpdateWalletBalances"); err != nil {
		return db.Wallet{}, err
	}
	w, ok := t.wallet(arg.ID)
	if !ok {
		return db.Wallet{}, sql.ErrNoRows
	}
	balance, err := parse(arg.Balance)
	if err != nil {
		return db.Wallet{}, err
	}
	locked, err := parse(arg.LockedBalance)
	if err != nil {
		return db.Wallet{}, err
	}
	switch {
	case balance.IsNegative():
		return db.Wallet{}, checkViolation("wallets_balance_non_negative")
	case locked.IsNegative():
		return db.Wallet{}, checkViolation("wallets_locked_non_negative")
	case locked.GreaterThan(balance):
		return db.Wallet{}, checkViolation("wallets_locked_within_balance")
	}
	w.Balance = canonical(balance)
	w.LockedBalance = canonical(locked)
	w.UpdatedAt = time.Now()
	t.stage(w)
	return w, nil
}

func (t *txQuerier) ListLedgerTransactionsByWallet(ctx context.Context, arg db.ListLedgerTransactionsByWalletParams) ([]db.LedgerTransaction, error) {
	t.store.mu.Lock()
	all := append(slices.Clone(t.store.txs), t.txs...)
	t.store.mu.Unlock()

	var rows []db.LedgerTransaction
	for _, row := range all {
		if row.FromWalletID == arg.FromWalletID || (row.ToWalletID.Valid && row.ToWalletID.UUID == arg.FromWalletID) {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return bytes.Compare(rows[i].ID[:], rows[j].ID[:]) < 0
	})
	return page(rows, arg.Limit, arg.Offset), nil
}

func (t *txQuerier) ListWalletLockEvents(ctx context.Context, arg db.ListWalletLockEventsParams) ([]db.WalletLockEvent, error) {
	t.store.mu.Lock()
	all := append(slices.Clone(t.store.events), t.events...)
	t.store.mu.Unlock()

	var rows []db.WalletLockEvent
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].WalletID == arg.WalletID {
			rows = append(rows, all[i])
		}
	}
	return page(rows, arg.Limit, 0), nil
}

func (t *txQuerier) ListWallets(ctx context.Context, arg db.ListWalletsParams) ([]db.Wallet, error) {
	t.store.mu.Lock()
	rows := make([]db.Wallet, 0, len(t.store.wallets))
	for id, w := range t.store.wallets {
		if staged, ok := t.wallets[id]; ok {
			w = staged
		}
		rows = append(rows, w)
	}
	t.store.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		return bytes.Compare(rows[i].ID[:], rows[j].ID[:]) < 0
	})
	return page(rows, arg.Limit, arg.Offset), nil
}

func (t *txQuerier) SumLedgerTransactionsByType(ctx context.Context) ([]db.SumLedgerTransactionsByTypeRow, error) {
	t.store.mu.Lock()
	all := append(slices.Clone(t.store.txs), t.txs...)
	t.store.mu.Unlock()

	type sums struct {
		count      int64
		gross, fee decimal.Decimal
	}
	byType := map[string]*sums{}
	for _, row := range all {
		s, ok := byType[row.Type]
		if !ok {
			s = &sums{}
			byType[row.Type] = s
		}
		gross, _ := decimal.NewFromString(row.Amount)
		fee, _ := decimal.NewFromString(row.Fee)
		s.count++
		s.gross = s.gross.Add(gross)
		s.fee = s.fee.Add(fee)
	}

	out := make([]db.SumLedgerTransactionsByTypeRow, 0, len(byType))
	for typ, s := range byType {
		out = append(out, db.SumLedgerTransactionsByTypeRow{
			Type:        typ,
			Count:       s.count,
			TotalAmount: canonical(s.gross),
			TotalFee:    canonical(s.fee),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func page[T any](rows []T, limit, offset int32) []T {
	if int(offset) >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit >= 0 && int(limit) < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

var _ db.Querier = (*txQuerier)(nil)
