package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	db "github.com/degentalk/dgt-ledger/db/sqlc"
	"github.com/degentalk/dgt-ledger/internal/reconcile"
	"github.com/degentalk/dgt-ledger/internal/wallet/service"
	"github.com/degentalk/dgt-ledger/internal/withdrawal"
	"github.com/degentalk/dgt-ledger/services/cache"
	"github.com/degentalk/dgt-ledger/services/monitoring/logging"
	"github.com/degentalk/dgt-ledger/services/monitoring/tasks"
	"github.com/degentalk/dgt-ledger/services/redis"
	"github.com/degentalk/dgt-ledger/utils"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hashicorp/go-multierror"
	_ "github.com/lib/pq"
)

const reconcileTaskID = "reconcile"

// Ledger holds the long lived pieces of a running node.
type Ledger struct {
	conn        *sql.DB
	redis       *redis.RedisService
	scheduler   *tasks.TaskScheduler
	Balances    *service.BalanceManager
	Withdrawals *withdrawal.Service
	Reconciler  *reconcile.Reconciler
}

func main() {
	config, err := utils.LoadConfig(utils.EnvPath)
	if err != nil {
		panic(fmt.Sprintf("Could not load config: %v", err))
	}

	logger := logging.NewLogger(config)
	logger.WithField("config", config.Redact()).Debug("config loaded")

	ledger, err := NewLedger(config, logger)
	if err != nil {
		logger.WithError(err).Fatal("unable to start ledger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ledger.Start(config); err != nil {
		logger.WithError(err).Fatal("unable to schedule background tasks")
	}
	logger.Info("ledger started")

	<-ctx.Done()
	logger.Info("shutting down")
	if err := ledger.Close(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}

func NewLedger(c *utils.Config, logger *logging.Logger) (*Ledger, error) {
	dsn := utils.GetDBSource(c, c.DBName)

	conn, err := sql.Open(c.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not reach database: %w", err)
	}

	if err := migrateUp(c.MigrationsPath, dsn); err != nil {
		conn.Close()
		return nil, err
	}

	policy, err := c.Policy()
	if err != nil {
		conn.Close()
		return nil, err
	}
	feeWallet, err := c.FeeWalletID()
	if err != nil {
		conn.Close()
		return nil, err
	}

	rs, err := redis.NewRedisService(&redis.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not reach redis at %s: %w", c.RedisAddr(), err)
	}

	store := db.NewStore(conn).WithLockTimeout(c.DBLockTimeout)

	opts := []service.Option{service.WithWalletCache(cache.Shared()), service.WithPolicy(policy)}
	if feeWallet.Valid {
		opts = append(opts, service.WithFeeWallet(feeWallet.UUID))
		logger.WithField(logging.FieldWalletID, feeWallet.UUID.String()).Info("fees are credited to the treasury wallet")
	}
	balances := service.NewBalanceManager(store, logger, opts...)

	return &Ledger{
		conn:        conn,
		redis:       rs,
		scheduler:   tasks.NewTaskScheduler(logger),
		Balances:    balances,
		Withdrawals: withdrawal.NewService(balances, redis.NewDailyWithdrawals(rs), policy, logger),
		Reconciler:  reconcile.NewReconciler(db.New(conn), logger, c.ReconcilePageSize),
	}, nil
}

func migrateUp(path, dsn string) error {
	m, err := migrate.New(path, dsn)
	if err != nil {
		return fmt.Errorf("unable to instantiate the database schema migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("unable to migrate up to the latest database schema: %w", err)
	}
	return nil
}

// Start runs reconciliation now and then every ReconcileInterval.
func (l *Ledger) Start(c *utils.Config) error {
	if _, err := l.scheduler.AddTask(reconcileTaskID, "ledger reconciliation", l.Reconciler.Task, c.ReconcileInterval); err != nil {
		return err
	}
	return l.scheduler.ScheduleTask(reconcileTaskID, 0)
}

func (l *Ledger) Close() error {
	l.scheduler.Shutdown()

	var result error
	if err := l.redis.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("redis: %w", err))
	}
	if err := l.conn.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("database: %w", err))
	}
	return result
}
