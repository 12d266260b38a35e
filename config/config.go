package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Oracle       OracleConfig       `mapstructure:"oracle"`
	Confirmation ConfirmationConfig `mapstructure:"confirmation"`
	Admin        AdminConfig        `mapstructure:"admin"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// OracleConfig tunes the multi-provider balance oracle.
type OracleConfig struct {
	// ProviderTimeout bounds each individual provider call so one slow
	// upstream cannot stall confirmation.
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	// CacheTTL is the lifetime of cached balance snapshots. Zero disables
	// the snapshot cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// BitcoinComURL, BlockchairURL and FullstackURL override the provider
	// base URLs (used in tests; defaults point at the public APIs).
	BitcoinComURL string `mapstructure:"bitcoincom_url"`
	BlockchairURL string `mapstructure:"blockchair_url"`
	FullstackURL  string `mapstructure:"fullstack_url"`
}

// ConfirmationConfig selects how sessions are confirmed.
type ConfirmationConfig struct {
	// TestMode switches confirmation from live chain queries to the
	// deterministic fixed-delay clock. Can be flipped at runtime through
	// the admin API; this value is only the boot default.
	TestMode bool `mapstructure:"test_mode"`
	// TestDelay is the fixed delay after which a session auto-confirms in
	// test mode.
	TestDelay time.Duration `mapstructure:"test_delay"`
}

// AdminConfig configures the dashboard operator surface.
type AdminConfig struct {
	// PasswordHash is the Argon2id hash of the operator password.
	PasswordHash string        `mapstructure:"password_hash"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTExpiry    time.Duration `mapstructure:"jwt_expiry"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: BPW_ (BCH Paywall).
// Nested keys use underscore: BPW_DATABASE_HOST, BPW_ADMIN_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "bch_paywall")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("oracle.provider_timeout", "6s")
	v.SetDefault("oracle.cache_ttl", "5s")
	v.SetDefault("oracle.bitcoincom_url", "https://rest.bitcoin.com/v2")
	v.SetDefault("oracle.blockchair_url", "https://api.blockchair.com")
	v.SetDefault("oracle.fullstack_url", "https://api.fullstack.cash/v5")
	v.SetDefault("confirmation.test_mode", false)
	v.SetDefault("confirmation.test_delay", "10s")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.jwt_expiry", "12h")
	v.SetDefault("admin.jwt_issuer", "bch-paywall")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: BPW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("BPW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can carry the full configuration.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
