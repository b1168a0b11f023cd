package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TxStore is what the ledger services need from storage: plain queries for
// reads, and ExecTx for a unit of work under row locks.
type TxStore interface {
	Querier
	ExecTx(ctx context.Context, fn func(q Querier) error) error
}

type Store struct {
	*Queries
	DB          *sql.DB
	lockTimeout time.Duration
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:      db,
		Queries: New(db),
	}
}

// WithLockTimeout bounds how long a statement inside ExecTx waits for a row
// lock before PostgreSQL aborts it with lock_not_available.
func (s *Store) WithLockTimeout(d time.Duration) *Store {
	s.lockTimeout = d
	return s
}

// ExecTx runs fq inside one database transaction. Any error from fq, or from
// commit, leaves nothing behind.
func (s *Store) ExecTx(ctx context.Context, fq func(q Querier) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fq(New(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("encountered rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ TxStore = (*Store)(nil)
