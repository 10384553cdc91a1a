// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBOT_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Venue     VenueConfig     `toml:"venue"`
	Scanner   ScannerConfig   `toml:"scanner"`
	Profit    ProfitConfig    `toml:"profit"`
	Capital   CapitalConfig   `toml:"capital"`
	Risk      RiskConfig      `toml:"risk"`
	Execution ExecutionConfig `toml:"execution"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials for signing venue orders.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// VenueConfig holds venue API endpoints and chain parameters.
type VenueConfig struct {
	ClobHost  string `toml:"clob_host"`
	GammaHost string `toml:"gamma_host"`
	WsHost    string `toml:"ws_host"`
	ChainID   int    `toml:"chain_id"`
	// RateLimitPerSecond caps REST calls to the venue. 0 disables limiting.
	RateLimitPerSecond int `toml:"rate_limit_per_second"`
}

// ScannerConfig holds market-eligibility filters.
type ScannerConfig struct {
	AssetKeywords      []string `toml:"asset_keywords"`
	TimeframeKeywords  []string `toml:"timeframe_keywords"`
	MinLiquidity       float64  `toml:"min_liquidity"`
	MinCombinedLiquidity float64 `toml:"min_combined_liquidity"`
	MaxSpread          float64  `toml:"max_spread"`
	MinTimeRemaining   duration `toml:"min_time_remaining"`
	MaxCombinedPrice   float64  `toml:"max_combined_price"`
	LiquidityDepth     int      `toml:"liquidity_depth"`
	ScanInterval       duration `toml:"scan_interval"`
	BookCacheTTL       duration `toml:"book_cache_ttl"`
	// AssumedResolutionWindow is used when a market publishes no end time.
	AssumedResolutionWindow duration `toml:"assumed_resolution_window"`
}

// ProfitConfig holds profitability floors and the fee model inputs.
type ProfitConfig struct {
	MinGrossMargin    float64 `toml:"min_gross_margin"`
	MinNetMargin      float64 `toml:"min_net_margin"`
	MinDollarProfit   float64 `toml:"min_dollar_profit"`
	PlatformFee       float64 `toml:"platform_fee"`
	GasEstimate       float64 `toml:"gas_estimate"`
	SlippageTolerance float64 `toml:"slippage_tolerance"`
	ProfitWeight      float64 `toml:"profit_weight"`
	TimeWeight        float64 `toml:"time_weight"`
	LiquidityWeight   float64 `toml:"liquidity_weight"`
}

// CapitalConfig holds position-sizing caps.
type CapitalConfig struct {
	TotalCapital       float64 `toml:"total_capital"`
	MaxSinglePosition  float64 `toml:"max_single_position"`
	MaxDeploymentRatio float64 `toml:"max_deployment_ratio"`
	MinTradableSize    float64 `toml:"min_tradable_size"`
}

// RiskConfig holds the risk gate's loss caps and circuit breaker tuning.
type RiskConfig struct {
	MaxDailyLoss         float64  `toml:"max_daily_loss"`
	MaxWeeklyLoss        float64  `toml:"max_weekly_loss"`
	MaxOpenPositions     int      `toml:"max_open_positions"`
	ConsecutiveLossLimit int      `toml:"consecutive_loss_limit"`
	PauseDuration        duration `toml:"pause_duration"`
	// MaxPositionFraction bounds a single trade's notional as a fraction of
	// total capital at approval time.
	MaxPositionFraction float64 `toml:"max_position_fraction"`
	HistorySize         int     `toml:"history_size"`
}

// ExecutionConfig holds per-leg execution tolerances.
type ExecutionConfig struct {
	OrderTimeout  duration `toml:"order_timeout"`
	MinFillRatio  float64  `toml:"min_fill_ratio"`
	CancelTimeout duration `toml:"cancel_timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for record
// archival.
type S3Config struct {
	Enabled           bool     `toml:"enabled"`
	Endpoint          string   `toml:"endpoint"`
	Region            string   `toml:"region"`
	Bucket            string   `toml:"bucket"`
	AccessKey         string   `toml:"access_key"`
	SecretKey         string   `toml:"secret_key"`
	UseSSL            bool     `toml:"use_ssl"`
	ForcePathStyle    bool     `toml:"force_path_style"`
	RetentionDays     int      `toml:"retention_days"`
	ArchiveInterval   duration `toml:"archive_interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit caps API requests per client IP per RateWindow. 0 disables.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "15m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "30s" or "15m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Venue: VenueConfig{
			ClobHost:           "https://clob.polymarket.com",
			GammaHost:          "https://gamma-api.polymarket.com",
			WsHost:             "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			ChainID:            137,
			RateLimitPerSecond: 10,
		},
		Scanner: ScannerConfig{
			AssetKeywords:           []string{"BTC", "ETH", "SOL"},
			TimeframeKeywords:       []string{"15 min", "15min", "15-min"},
			MinLiquidity:            100,
			MinCombinedLiquidity:    200,
			MaxSpread:               0.03,
			MinTimeRemaining:        duration{2 * time.Minute},
			MaxCombinedPrice:        0.98,
			LiquidityDepth:          3,
			ScanInterval:            duration{30 * time.Second},
			BookCacheTTL:            duration{5 * time.Second},
			AssumedResolutionWindow: duration{15 * time.Minute},
		},
		Profit: ProfitConfig{
			MinGrossMargin:    0.025,
			MinNetMargin:      0.015,
			MinDollarProfit:   0.30,
			PlatformFee:       0.02,
			GasEstimate:       0.05,
			SlippageTolerance: 0.005,
			ProfitWeight:      100,
			TimeWeight:        2,
			LiquidityWeight:   0.01,
		},
		Capital: CapitalConfig{
			TotalCapital:       100,
			MaxSinglePosition:  20,
			MaxDeploymentRatio: 0.80,
			MinTradableSize:    1.0,
		},
		Risk: RiskConfig{
			MaxDailyLoss:         50,
			MaxWeeklyLoss:        150,
			MaxOpenPositions:     3,
			ConsecutiveLossLimit: 3,
			PauseDuration:        duration{30 * time.Minute},
			MaxPositionFraction:  0.25,
			HistorySize:          1000,
		},
		Execution: ExecutionConfig{
			OrderTimeout:  duration{10 * time.Second},
			MinFillRatio:  0.80,
			CancelTimeout: duration{5 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "arbot-data",
			ForcePathStyle:  true,
			RetentionDays:   90,
			ArchiveInterval: duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_found", "trade_executed", "trade_failed", "circuit_breaker", "error"},
		},
		Mode:     "sim",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live":    true,
	"sim":     true,
	"monitor": true,
	"server":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, sim, monitor, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet credentials are only required to place live orders.
	if strings.ToLower(c.Mode) == "live" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for live mode")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	if c.Venue.ClobHost == "" {
		errs = append(errs, "venue: clob_host must not be empty")
	}
	if c.Venue.GammaHost == "" {
		errs = append(errs, "venue: gamma_host must not be empty")
	}
	if c.Venue.ChainID <= 0 {
		errs = append(errs, "venue: chain_id must be positive")
	}

	if len(c.Scanner.AssetKeywords) == 0 {
		errs = append(errs, "scanner: asset_keywords must not be empty")
	}
	if len(c.Scanner.TimeframeKeywords) == 0 {
		errs = append(errs, "scanner: timeframe_keywords must not be empty")
	}
	if c.Scanner.MaxCombinedPrice <= 0 || c.Scanner.MaxCombinedPrice >= 1.0 {
		errs = append(errs, fmt.Sprintf("scanner: max_combined_price must be in (0,1), got %g", c.Scanner.MaxCombinedPrice))
	}
	if c.Scanner.LiquidityDepth < 1 {
		errs = append(errs, "scanner: liquidity_depth must be >= 1")
	}
	if c.Scanner.ScanInterval.Duration <= 0 {
		errs = append(errs, "scanner: scan_interval must be > 0")
	}
	if c.Scanner.MaxSpread <= 0 {
		errs = append(errs, "scanner: max_spread must be > 0")
	}

	if c.Profit.MinGrossMargin <= 0 {
		errs = append(errs, "profit: min_gross_margin must be > 0")
	}
	if c.Profit.MinNetMargin <= 0 {
		errs = append(errs, "profit: min_net_margin must be > 0")
	}
	if c.Profit.PlatformFee < 0 || c.Profit.PlatformFee >= 1 {
		errs = append(errs, fmt.Sprintf("profit: platform_fee must be in [0,1), got %g", c.Profit.PlatformFee))
	}

	if c.Capital.TotalCapital <= 0 {
		errs = append(errs, "capital: total_capital must be > 0")
	}
	if c.Capital.MaxSinglePosition <= 0 {
		errs = append(errs, "capital: max_single_position must be > 0")
	}
	if c.Capital.MaxDeploymentRatio <= 0 || c.Capital.MaxDeploymentRatio > 1 {
		errs = append(errs, fmt.Sprintf("capital: max_deployment_ratio must be in (0,1], got %g", c.Capital.MaxDeploymentRatio))
	}

	if c.Risk.MaxDailyLoss <= 0 {
		errs = append(errs, "risk: max_daily_loss must be > 0")
	}
	if c.Risk.MaxWeeklyLoss < c.Risk.MaxDailyLoss {
		errs = append(errs, "risk: max_weekly_loss must not be below max_daily_loss")
	}
	if c.Risk.MaxOpenPositions < 1 {
		errs = append(errs, "risk: max_open_positions must be >= 1")
	}
	if c.Risk.ConsecutiveLossLimit < 1 {
		errs = append(errs, "risk: consecutive_loss_limit must be >= 1")
	}
	if c.Risk.PauseDuration.Duration <= 0 {
		errs = append(errs, "risk: pause_duration must be > 0")
	}

	if c.Execution.OrderTimeout.Duration <= 0 {
		errs = append(errs, "execution: order_timeout must be > 0")
	}
	if c.Execution.MinFillRatio <= 0 || c.Execution.MinFillRatio > 1 {
		errs = append(errs, fmt.Sprintf("execution: min_fill_ratio must be in (0,1], got %g", c.Execution.MinFillRatio))
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1 when enabled")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
