package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(body), 0o600))
	return dir
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := writeEnv(t, "DB_USERNAME=ledger\nDB_PASSWORD=secret\n")

	c, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "localhost", c.DBHost)
	assert.Equal(t, 15*time.Minute, c.ReconcileInterval)
	assert.Equal(t, 5*time.Second, c.DBLockTimeout)

	p, err := c.Policy()
	require.NoError(t, err)
	assert.Equal(t, "1.00000000", p.MinimumTip.String())
	assert.Equal(t, "50000.00000000", p.DailyWithdrawalLimit.String())

	fee, err := c.FeeWalletID()
	require.NoError(t, err)
	assert.False(t, fee.Valid)
}

func TestLoadConfigReadsLedgerKeys(t *testing.T) {
	dir := writeEnv(t, `DB_USERNAME=ledger
DB_PASSWORD=secret
LEDGER_MIN_TIP=0.5
LEDGER_MAX_RAIN=250
LEDGER_FEE_WALLET_ID=0b7c6f1e-7c3f-4b7e-9d3a-2f6d8f1a9c11
RECONCILE_INTERVAL=1m
`)
	c, err := LoadConfig(dir)
	require.NoError(t, err)

	p, err := c.Policy()
	require.NoError(t, err)
	assert.Equal(t, "0.50000000", p.MinimumTip.String())
	assert.Equal(t, "250.00000000", p.MaximumRain.String())
	assert.Equal(t, time.Minute, c.ReconcileInterval)

	fee, err := c.FeeWalletID()
	require.NoError(t, err)
	assert.True(t, fee.Valid)
	assert.Equal(t, "0b7c6f1e-7c3f-4b7e-9d3a-2f6d8f1a9c11", fee.UUID.String())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := writeEnv(t, "DB_USERNAME=ledger\nDB_PASSWORD=secret\nDB_HOST=filehost\n")
	t.Setenv("DB_HOST", "envhost")

	c, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "envhost", c.DBHost)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	_, err := LoadConfig(writeEnv(t, "DB_USERNAME=\n"))
	assert.ErrorContains(t, err, "database credentials")

	_, err = LoadConfig(writeEnv(t, "DB_USERNAME=a\nDB_PASSWORD=b\nLEDGER_MIN_FEE=lots\n"))
	assert.ErrorContains(t, err, "LEDGER_MIN_FEE")

	_, err = LoadConfig(writeEnv(t, "DB_USERNAME=a\nDB_PASSWORD=b\nLEDGER_FEE_WALLET_ID=nope\n"))
	assert.ErrorContains(t, err, "LEDGER_FEE_WALLET_ID")
}

func TestRedactAndDSN(t *testing.T) {
	c := &Config{DBUsername: "ledger", DBPassword: "p@ss", DBHost: "db", DBPort: "5432", RedisPassword: "r"}
	r := c.Redact()
	assert.Equal(t, "****", r.DBPassword)
	assert.Equal(t, "****", r.RedisPassword)
	assert.Equal(t, "p@ss", c.DBPassword)

	assert.Equal(t, "postgres://ledger:p%40ss@db:5432/ledger?sslmode=disable", GetDBSource(c, "ledger"))
}
