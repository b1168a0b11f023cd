package reconcile

import (
	"context"
	"fmt"

	db "github.com/degentalk/dgt-ledger/db/sqlc"
	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/degentalk/dgt-ledger/internal/wallet/mapper"
	"github.com/degentalk/dgt-ledger/services/monitoring/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultPageSize int32 = 500

// Anomaly is a wallet row that breaks a ledger invariant. The reconciler
// only reports; fixing is an operator decision.
type Anomaly struct {
	WalletID uuid.UUID `json:"wallet_id"`
	Problem  string    `json:"problem"`
}

type TypeTotal struct {
	Type   string     `json:"type"`
	Count  int64      `json:"count"`
	Amount amount.DGT `json:"amount"`
	Fee    amount.Fee `json:"fee"`
}

type Report struct {
	Wallets        int64       `json:"wallets"`
	TotalBalance   amount.DGT  `json:"total_balance"`
	TotalLocked    amount.DGT  `json:"total_locked"`
	AverageBalance amount.DGT  `json:"average_balance"`
	LargestBalance amount.DGT  `json:"largest_balance"`
	TotalFees      amount.Fee  `json:"total_fees"`
	ByType         []TypeTotal `json:"by_type"`
	Anomalies      []Anomaly   `json:"anomalies"`
}

type Reconciler struct {
	queries  db.Querier
	logger   *logging.Logger
	pageSize int32
}

func NewReconciler(queries db.Querier, logger *logging.Logger, pageSize int32) *Reconciler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Reconciler{queries: queries, logger: logger, pageSize: pageSize}
}

// Run scans every wallet and the transaction totals concurrently and logs
// a summary. It returns an error only when storage fails.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.scanWallets(gctx, report)
	})
	g.Go(func() error {
		return r.sumTransactions(gctx, report)
	})
	if err := g.Wait(); err != nil {
		r.logger.Op("reconcile").WithError(err).Error("reconciliation aborted")
		return nil, err
	}

	r.logger.Op("reconcile").WithFields(logrus.Fields{
		"wallets":       report.Wallets,
		"total_balance": report.TotalBalance.String(),
		"total_locked":  report.TotalLocked.String(),
		"total_fees":    report.TotalFees.String(),
		"anomalies":     len(report.Anomalies),
	}).Info("reconciliation finished")
	return report, nil
}

// Task adapts Run to the scheduler's signature.
func (r *Reconciler) Task(ctx context.Context) error {
	_, err := r.Run(ctx)
	return err
}

func (r *Reconciler) scanWallets(ctx context.Context, report *Report) error {
	balances := amount.NewBatch[amount.DGT]()
	locked := amount.NewBatch[amount.DGT]()
	var anomalies []Anomaly

	for offset := int32(0); ; offset += r.pageSize {
		rows, err := r.queries.ListWallets(ctx, db.ListWalletsParams{Limit: r.pageSize, Offset: offset})
		if err != nil {
			return fmt.Errorf("list wallets at offset %d: %w", offset, err)
		}
		for _, row := range rows {
			if problem := check(row); problem != "" {
				anomalies = append(anomalies, Anomaly{WalletID: row.ID, Problem: problem})
				r.logger.Op("reconcile").WithFields(logrus.Fields{
					logging.FieldWalletID: row.ID.String(),
					"balance":             row.Balance,
					"locked":              row.LockedBalance,
				}).Error(problem)
				continue
			}
			w, _ := mapper.ToWalletModel(row)
			balances.Add(w.Balance)
			locked.Add(w.LockedBalance)
		}
		if int32(len(rows)) < r.pageSize {
			break
		}
	}

	report.Wallets = balances.Count() + int64(len(anomalies))
	report.TotalBalance = balances.Total()
	report.TotalLocked = locked.Total()
	report.AverageBalance = balances.Average()
	report.LargestBalance = balances.Max()
	report.Anomalies = anomalies
	return nil
}

func check(row db.Wallet) string {
	w, err := mapper.ToWalletModel(row)
	if err != nil {
		return "unparsable balance"
	}
	switch {
	case amount.IsNegative(w.Balance):
		return "negative balance"
	case amount.IsNegative(w.LockedBalance):
		return "negative locked balance"
	case amount.Cmp(w.LockedBalance, w.Balance) > 0:
		return "locked balance exceeds balance"
	}
	return ""
}

func (r *Reconciler) sumTransactions(ctx context.Context, report *Report) error {
	rows, err := r.queries.SumLedgerTransactionsByType(ctx)
	if err != nil {
		return fmt.Errorf("sum transactions: %w", err)
	}
	fees := amount.NewBatch[amount.Fee]()
	totals := make([]TypeTotal, 0, len(rows))
	for _, row := range rows {
		gross, err := amount.ToDGT(row.TotalAmount)
		if err != nil {
			return fmt.Errorf("total for %s: %w", row.Type, err)
		}
		fee, err := amount.ToFee(row.TotalFee)
		if err != nil {
			return fmt.Errorf("fee total for %s: %w", row.Type, err)
		}
		fees.Add(fee)
		totals = append(totals, TypeTotal{Type: row.Type, Count: row.Count, Amount: gross, Fee: fee})
	}
	report.ByType = totals
	report.TotalFees = fees.Total()
	return nil
}
