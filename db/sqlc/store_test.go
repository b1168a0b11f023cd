package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var walletColumns = []string{"id", "user_id", "balance", "locked_balance", "status", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn), mock
}

func TestExecTxCommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 LIMIT 1\nFOR UPDATE")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(walletColumns).AddRow(id, 1, "10.00000000", "0.00000000", "active", now, now))
	mock.ExpectCommit()

	err := store.ExecTx(context.Background(), func(q Querier) error {
		w, err := q.GetWalletForUpdate(context.Background(), id)
		if err != nil {
			return err
		}
		assert.Equal(t, "10.00000000", w.Balance)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.ExecTx(context.Background(), func(q Querier) error { return boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecTxSetsLockTimeout(t *testing.T) {
	store, mock := newMockStore(t)
	store.WithLockTimeout(1500 * time.Millisecond)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '1500ms'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, store.ExecTx(context.Background(), func(q Querier) error { return nil }))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecTxReportsCommitFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := store.ExecTx(context.Background(), func(q Querier) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
}

func TestUpdateWalletBalancesSendsBothColumns(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(id, "400.00000000", "400.00000000").
		WillReturnRows(sqlmock.NewRows(walletColumns).AddRow(id, 1, "400.00000000", "400.00000000", "active", now, now))

	w, err := store.UpdateWalletBalances(context.Background(), UpdateWalletBalancesParams{
		ID:            id,
		Balance:       "400.00000000",
		LockedBalance: "400.00000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "400.00000000", w.LockedBalance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorCodeHelpers(t *testing.T) {
	wrapped := fmt.Errorf("debit: %w", &pq.Error{Code: CheckViolation})
	assert.True(t, IsCheckViolation(wrapped))
	assert.False(t, IsUniqueViolation(wrapped))
	assert.True(t, IsLockTimeout(&pq.Error{Code: LockNotAvailable}))
	assert.True(t, IsDeadlock(&pq.Error{Code: DeadlockDetected}))
	assert.False(t, IsDeadlock(errors.New("plain")))
}
