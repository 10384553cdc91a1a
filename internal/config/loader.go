package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "ARBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "ARBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "ARBOT_WALLET_KEY_PASSWORD")

	// ── Venue ──
	setStr(&cfg.Venue.ClobHost, "ARBOT_VENUE_CLOB_HOST")
	setStr(&cfg.Venue.GammaHost, "ARBOT_VENUE_GAMMA_HOST")
	setStr(&cfg.Venue.WsHost, "ARBOT_VENUE_WS_HOST")
	setInt(&cfg.Venue.ChainID, "ARBOT_VENUE_CHAIN_ID")
	setInt(&cfg.Venue.RateLimitPerSecond, "ARBOT_VENUE_RATE_LIMIT_PER_SECOND")

	// ── Scanner ──
	setStringSlice(&cfg.Scanner.AssetKeywords, "ARBOT_SCANNER_ASSET_KEYWORDS")
	setStringSlice(&cfg.Scanner.TimeframeKeywords, "ARBOT_SCANNER_TIMEFRAME_KEYWORDS")
	setFloat64(&cfg.Scanner.MinLiquidity, "ARBOT_SCANNER_MIN_LIQUIDITY")
	setFloat64(&cfg.Scanner.MinCombinedLiquidity, "ARBOT_SCANNER_MIN_COMBINED_LIQUIDITY")
	setFloat64(&cfg.Scanner.MaxSpread, "ARBOT_SCANNER_MAX_SPREAD")
	setDuration(&cfg.Scanner.MinTimeRemaining, "ARBOT_SCANNER_MIN_TIME_REMAINING")
	setFloat64(&cfg.Scanner.MaxCombinedPrice, "ARBOT_SCANNER_MAX_COMBINED_PRICE")
	setInt(&cfg.Scanner.LiquidityDepth, "ARBOT_SCANNER_LIQUIDITY_DEPTH")
	setDuration(&cfg.Scanner.ScanInterval, "ARBOT_SCANNER_SCAN_INTERVAL")
	setDuration(&cfg.Scanner.BookCacheTTL, "ARBOT_SCANNER_BOOK_CACHE_TTL")

	// ── Profit ──
	setFloat64(&cfg.Profit.MinGrossMargin, "ARBOT_PROFIT_MIN_GROSS_MARGIN")
	setFloat64(&cfg.Profit.MinNetMargin, "ARBOT_PROFIT_MIN_NET_MARGIN")
	setFloat64(&cfg.Profit.MinDollarProfit, "ARBOT_PROFIT_MIN_DOLLAR_PROFIT")
	setFloat64(&cfg.Profit.PlatformFee, "ARBOT_PROFIT_PLATFORM_FEE")
	setFloat64(&cfg.Profit.GasEstimate, "ARBOT_PROFIT_GAS_ESTIMATE")
	setFloat64(&cfg.Profit.SlippageTolerance, "ARBOT_PROFIT_SLIPPAGE_TOLERANCE")

	// ── Capital ──
	setFloat64(&cfg.Capital.TotalCapital, "ARBOT_CAPITAL_TOTAL_CAPITAL")
	setFloat64(&cfg.Capital.MaxSinglePosition, "ARBOT_CAPITAL_MAX_SINGLE_POSITION")
	setFloat64(&cfg.Capital.MaxDeploymentRatio, "ARBOT_CAPITAL_MAX_DEPLOYMENT_RATIO")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxDailyLoss, "ARBOT_RISK_MAX_DAILY_LOSS")
	setFloat64(&cfg.Risk.MaxWeeklyLoss, "ARBOT_RISK_MAX_WEEKLY_LOSS")
	setInt(&cfg.Risk.MaxOpenPositions, "ARBOT_RISK_MAX_OPEN_POSITIONS")
	setInt(&cfg.Risk.ConsecutiveLossLimit, "ARBOT_RISK_CONSECUTIVE_LOSS_LIMIT")
	setDuration(&cfg.Risk.PauseDuration, "ARBOT_RISK_PAUSE_DURATION")

	// ── Execution ──
	setDuration(&cfg.Execution.OrderTimeout, "ARBOT_EXECUTION_ORDER_TIMEOUT")
	setFloat64(&cfg.Execution.MinFillRatio, "ARBOT_EXECUTION_MIN_FILL_RATIO")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBOT_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "ARBOT_S3_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "ARBOT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBOT_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBOT_MODE")
	setStr(&cfg.LogLevel, "ARBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
