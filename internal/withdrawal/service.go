package withdrawal

import (
	"context"
	"fmt"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/degentalk/dgt-ledger/internal/transaction"
	"github.com/degentalk/dgt-ledger/internal/wallet/domain"
	"github.com/degentalk/dgt-ledger/services/monitoring/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	reasonRequested = "withdrawal requested"
	reasonCancelled = "withdrawal cancelled"
)

// Ledger is the part of the balance manager a withdrawal goes through.
type Ledger interface {
	LockAmount(ctx context.Context, walletID uuid.UUID, amt amount.DGT, reason string) (bool, error)
	UnlockAmount(ctx context.Context, walletID uuid.UUID, amt amount.DGT, reason string) (bool, error)
	SettleLocked(ctx context.Context, walletID uuid.UUID, amt amount.DGT, tx transaction.Transaction) (*transaction.Record, error)
}

// Tracker keeps the per-user running total for the daily ceiling.
type Tracker interface {
	Reserve(ctx context.Context, userID int64, amt amount.DGT, allow func(withdrawnToday, a amount.DGT) bool) (bool, error)
	Release(ctx context.Context, userID int64, amt amount.DGT) error
}

// Service runs a withdrawal in two steps. Request reserves the funds and
// the daily allowance; Complete settles once the payout is made, or Cancel
// gives both back.
type Service struct {
	ledger  Ledger
	tracker Tracker
	policy  amount.Policy
	logger  *logging.Logger
}

func NewService(ledger Ledger, tracker Tracker, policy amount.Policy, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Service{
		ledger:  ledger,
		tracker: tracker,
		policy:  policy,
		logger:  logger,
	}
}

func (s *Service) entry(op string, user transaction.Party, amt amount.DGT) *logrus.Entry {
	return s.logger.Op(op).WithFields(logrus.Fields{
		logging.FieldUserID:   user.UserID,
		logging.FieldWalletID: user.WalletID.String(),
		logging.FieldAmount:   amt.String(),
	})
}

// Request locks amt in the user's wallet. It fails with
// amount.ErrCeilingExceeded when the daily limit would be passed and with
// domain.ErrInsufficientFunds when the wallet cannot cover it.
func (s *Service) Request(ctx context.Context, user transaction.Party, amt amount.DGT) error {
	const op = "withdrawal_request"
	if !amount.IsPositive(amt) {
		return amount.NewAmountError(amount.ErrInvalidAmount, op, amt.String())
	}
	entry := s.entry(op, user, amt)

	ok, err := s.tracker.Reserve(ctx, user.UserID, amt, s.policy.IsWithinDailyWithdrawalCeiling)
	if err != nil {
		entry.WithError(err).Error("could not reserve daily allowance")
		return err
	}
	if !ok {
		entry.Info("daily withdrawal limit reached")
		return amount.NewAmountError(amount.ErrCeilingExceeded, op, amt.String())
	}

	locked, err := s.ledger.LockAmount(ctx, user.WalletID, amt, reasonRequested)
	if err != nil || !locked {
		if relErr := s.tracker.Release(ctx, user.UserID, amt); relErr != nil {
			entry.WithError(relErr).Error("could not release daily allowance")
		}
		if err != nil {
			return err
		}
		return domain.NewWalletError(domain.ErrInsufficientFunds, user.WalletID.String())
	}

	entry.Info("withdrawal requested")
	return nil
}

// Complete settles a requested withdrawal, debiting the locked funds and
// recording a withdrawal transaction.
func (s *Service) Complete(ctx context.Context, user transaction.Party, amt amount.DGT, destination string) (*transaction.Record, error) {
	tx, err := transaction.NewBuilder().Withdrawal(amt, user, destination).Build()
	if err != nil {
		return nil, err
	}
	record, err := s.ledger.SettleLocked(ctx, user.WalletID, amt, tx)
	if err != nil {
		return nil, err
	}
	s.entry("withdrawal_complete", user, amt).WithField("tx_id", record.ID.String()).Info("withdrawal completed")
	return record, nil
}

// Cancel releases a requested withdrawal.
func (s *Service) Cancel(ctx context.Context, user transaction.Party, amt amount.DGT) error {
	const op = "withdrawal_cancel"
	entry := s.entry(op, user, amt)

	ok, err := s.ledger.UnlockAmount(ctx, user.WalletID, amt, reasonCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewWalletError(domain.ErrInsufficientLocked, user.WalletID.String(),
			fmt.Errorf("cancel %s: nothing to release", amt))
	}
	if err := s.tracker.Release(ctx, user.UserID, amt); err != nil {
		entry.WithError(err).Error("could not release daily allowance")
		return err
	}
	entry.Info("withdrawal cancelled")
	return nil
}
