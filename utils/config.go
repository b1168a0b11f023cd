package utils

import (
	"fmt"
	"log"
	"time"

	"github.com/degentalk/dgt-ledger/internal/amount"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

var (
	EnvPath string = "."
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	DBUsername        string `mapstructure:"DB_USERNAME"`
	DBPassword        string `mapstructure:"DB_PASSWORD"`
	DBHost            string `mapstructure:"DB_HOST"`
	DBPort            string `mapstructure:"DB_PORT"`
	DBDriver          string `mapstructure:"DB_DRIVER"`
	DBName            string `mapstructure:"DB_NAME"`
	SSLMode           string `mapstructure:"SSLMODE"`
	MigrationsPath    string `mapstructure:"MIGRATIONS_PATH"`
	Papertrail        string `mapstructure:"PAPERTRAIL"`
	PapertrailAppName string `mapstructure:"PAPERTRAIL_APP_NAME"`
	RedisHost         string `mapstructure:"REDIS_HOST"`
	RedisPort         string `mapstructure:"REDIS_PORT"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int    `mapstructure:"REDIS_DB"`

	// Ledger policy. Amounts are kept as strings until Policy parses them
	// so no precision is lost on the way in.
	LedgerMinTip          string        `mapstructure:"LEDGER_MIN_TIP"`
	LedgerMaxTip          string        `mapstructure:"LEDGER_MAX_TIP"`
	LedgerMaxRain         string        `mapstructure:"LEDGER_MAX_RAIN"`
	LedgerMinFee          string        `mapstructure:"LEDGER_MIN_FEE"`
	LedgerDailyWithdrawal string        `mapstructure:"LEDGER_DAILY_WITHDRAWAL_LIMIT"`
	LedgerFeeWalletID     string        `mapstructure:"LEDGER_FEE_WALLET_ID"`
	DBLockTimeout         time.Duration `mapstructure:"DB_LOCK_TIMEOUT"`
	ReconcileInterval     time.Duration `mapstructure:"RECONCILE_INTERVAL"`
	ReconcilePageSize     int32         `mapstructure:"RECONCILE_PAGE_SIZE"`
}

func setDefaults(v *viper.Viper) {
	policy := amount.DefaultPolicy()

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_USERNAME", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_NAME", "dgt_ledger")
	v.SetDefault("SSLMODE", "disable")
	v.SetDefault("MIGRATIONS_PATH", "file://db/migrations")
	v.SetDefault("PAPERTRAIL", "")
	v.SetDefault("PAPERTRAIL_APP_NAME", "dgt-ledger")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LEDGER_MIN_TIP", policy.MinimumTip.String())
	v.SetDefault("LEDGER_MAX_TIP", policy.MaximumTip.String())
	v.SetDefault("LEDGER_MAX_RAIN", policy.MaximumRain.String())
	v.SetDefault("LEDGER_MIN_FEE", policy.MinimumFee.String())
	v.SetDefault("LEDGER_DAILY_WITHDRAWAL_LIMIT", policy.DailyWithdrawalLimit.String())
	v.SetDefault("LEDGER_FEE_WALLET_ID", "")
	v.SetDefault("DB_LOCK_TIMEOUT", "5s")
	v.SetDefault("RECONCILE_INTERVAL", "15m")
	v.SetDefault("RECONCILE_PAGE_SIZE", 500)
}

func LoadConfig(path string) (*Config, error) {
	// Validate that the path is not empty
	if path == "" {
		path = "."
	}

	// Create a new Viper instance to avoid global state
	v := viper.New()

	v.SetEnvPrefix("")
	v.AutomaticEnv()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		// Log the error, but don't fail entirely
		log.Printf("Warning: Unable to read config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.DBUsername == "" || config.DBPassword == "" {
		return fmt.Errorf("database credentials must be provided")
	}
	if config.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile interval must be positive")
	}
	if _, err := config.Policy(); err != nil {
		return err
	}
	if _, err := config.FeeWalletID(); err != nil {
		return err
	}
	return nil
}

// Policy builds the ledger's platform limits from config.
func (c *Config) Policy() (amount.Policy, error) {
	var (
		p   amount.Policy
		err error
	)
	if p.MinimumTip, err = amount.ToDGT(c.LedgerMinTip); err != nil {
		return p, fmt.Errorf("LEDGER_MIN_TIP: %w", err)
	}
	if p.MaximumTip, err = amount.ToDGT(c.LedgerMaxTip); err != nil {
		return p, fmt.Errorf("LEDGER_MAX_TIP: %w", err)
	}
	if p.MaximumRain, err = amount.ToDGT(c.LedgerMaxRain); err != nil {
		return p, fmt.Errorf("LEDGER_MAX_RAIN: %w", err)
	}
	if p.MinimumFee, err = amount.ToFee(c.LedgerMinFee); err != nil {
		return p, fmt.Errorf("LEDGER_MIN_FEE: %w", err)
	}
	if p.DailyWithdrawalLimit, err = amount.ToDGT(c.LedgerDailyWithdrawal); err != nil {
		return p, fmt.Errorf("LEDGER_DAILY_WITHDRAWAL_LIMIT: %w", err)
	}
	if amount.Cmp(p.MinimumTip, p.MaximumTip) > 0 {
		return p, fmt.Errorf("LEDGER_MIN_TIP exceeds LEDGER_MAX_TIP")
	}
	return p, nil
}

// FeeWalletID is the treasury wallet fees are routed to, when configured.
func (c *Config) FeeWalletID() (uuid.NullUUID, error) {
	if c.LedgerFeeWalletID == "" {
		return uuid.NullUUID{}, nil
	}
	id, err := uuid.Parse(c.LedgerFeeWalletID)
	if err != nil {
		return uuid.NullUUID{}, fmt.Errorf("LEDGER_FEE_WALLET_ID: %w", err)
	}
	return uuid.NullUUID{UUID: id, Valid: true}, nil
}

// Masking sensitive information for logging
func (c *Config) Redact() Config {
	redacted := *c
	redacted.DBPassword = "****"
	redacted.RedisPassword = "****"
	return redacted
}
