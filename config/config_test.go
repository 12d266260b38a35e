package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "bch_paywall", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, int32(5), cfg.Database.MinConns)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, 6*time.Second, cfg.Oracle.ProviderTimeout)
	assert.Equal(t, 5*time.Second, cfg.Oracle.CacheTTL)
	assert.Equal(t, "https://rest.bitcoin.com/v2", cfg.Oracle.BitcoinComURL)
	assert.Equal(t, "https://api.blockchair.com", cfg.Oracle.BlockchairURL)

	assert.False(t, cfg.Confirmation.TestMode)
	assert.Equal(t, 10*time.Second, cfg.Confirmation.TestDelay)

	assert.Equal(t, 12*time.Hour, cfg.Admin.JWTExpiry)
	assert.Equal(t, "bch-paywall", cfg.Admin.JWTIssuer)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090
  mode: "release"
database:
  host: "db.example.com"
  port: 5433
  user: "appuser"
  password: "secret123"
  dbname: "paywalldb"
  sslmode: "require"
redis:
  host: "redis.example.com"
  port: 6380
  password: "redispwd"
  db: 2
oracle:
  provider_timeout: "8s"
  cache_ttl: "3s"
  bitcoincom_url: "http://localhost:9201/v2"
confirmation:
  test_mode: true
  test_delay: "2s"
admin:
  jwt_secret: "my-jwt-secret"
  jwt_expiry: "1h"
  jwt_issuer: "test-paywall"
log:
  level: "debug"
  pretty: true
`)
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 8*time.Second, cfg.Oracle.ProviderTimeout)
	assert.Equal(t, 3*time.Second, cfg.Oracle.CacheTTL)
	assert.Equal(t, "http://localhost:9201/v2", cfg.Oracle.BitcoinComURL)
	assert.True(t, cfg.Confirmation.TestMode)
	assert.Equal(t, 2*time.Second, cfg.Confirmation.TestDelay)
	assert.Equal(t, "my-jwt-secret", cfg.Admin.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Admin.JWTExpiry)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BPW_SERVER_PORT", "9999")
	t.Setenv("BPW_CONFIRMATION_TEST_MODE", "true")
	t.Setenv("BPW_ORACLE_PROVIDER_TIMEOUT", "2s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Confirmation.TestMode)
	assert.Equal(t, 2*time.Second, cfg.Oracle.ProviderTimeout)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "u",
		Password: "p",
		DBName:   "d",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://u:p@localhost:5432/d?sslmode=disable", cfg.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.local", Port: 6380}
	assert.Equal(t, "redis.local:6380", cfg.Addr())
}
