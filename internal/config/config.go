package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the bot
type Config struct {
	// Kalshi API
	KalshiAPIURL    string
	CredentialsPath string

	// Mode
	DryRun bool
	Debug  bool

	// Fees & spread
	FeePerContractCents int64 // per side, in cents
	MinProfitCents      int64 // minimum profit after fees

	// Position sizing
	UseKellySizing       bool
	RiskPerTradePct      decimal.Decimal // fraction of balance per trade when not using Kelly
	MinPositionContracts int
	MaxPositionContracts int

	// Risk limits
	DailyLossLimitCents   int64
	MaxDrawdownPct        decimal.Decimal
	MaxPositionValueCents int64
	MaxExposureCents      int64
	OrdersPerMinute       int

	// Market filters
	MinVolumeThreshold int64
	ScanLimit          int
	TopMarkets         int
	MarketsPerCycle    int

	// Loop timing
	CycleInterval time.Duration
	ErrorBackoff  time.Duration
	OrderPacing   time.Duration

	// Persistence
	StatePath   string
	JournalPath string

	// Telegram (optional)
	TelegramToken  string
	TelegramChatID int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Kalshi API
		KalshiAPIURL:    getEnv("KALSHI_API_URL", "https://api.elections.kalshi.com/v1"),
		CredentialsPath: getEnv("KALSHI_CREDENTIALS", "kalshi-config.secret.json"),

		// Mode
		DryRun: getEnvBool("DRY_RUN", true),
		Debug:  getEnvBool("DEBUG", false),

		// Fees & spread
		FeePerContractCents: getEnvInt64("FEE_PER_CONTRACT_CENTS", 2),
		MinProfitCents:      getEnvInt64("MIN_PROFIT_CENTS", 1),

		// Position sizing
		UseKellySizing:       getEnvBool("USE_KELLY_SIZING", true),
		RiskPerTradePct:      getEnvDecimal("RISK_PER_TRADE_PCT", decimal.NewFromFloat(0.01)),
		MinPositionContracts: getEnvInt("MIN_POSITION_CONTRACTS", 1),
		MaxPositionContracts: getEnvInt("MAX_POSITION_CONTRACTS", 100),

		// Risk limits
		DailyLossLimitCents:   getEnvInt64("DAILY_LOSS_LIMIT_CENTS", 5000),
		MaxDrawdownPct:        getEnvDecimal("MAX_DRAWDOWN_PCT", decimal.NewFromFloat(0.10)),
		MaxPositionValueCents: getEnvInt64("MAX_POSITION_VALUE_CENTS", 10000),
		MaxExposureCents:      getEnvInt64("MAX_EXPOSURE_CENTS", 5000),
		OrdersPerMinute:       getEnvInt("ORDERS_PER_MINUTE", 10),

		// Market filters
		MinVolumeThreshold: getEnvInt64("MIN_VOLUME_THRESHOLD", 1000),
		ScanLimit:          getEnvInt("SCAN_LIMIT", 100),
		TopMarkets:         getEnvInt("TOP_MARKETS", 10),
		MarketsPerCycle:    getEnvInt("MARKETS_PER_CYCLE", 5),

		// Loop timing
		CycleInterval: getEnvDuration("CYCLE_INTERVAL", 5*time.Minute),
		ErrorBackoff:  getEnvDuration("ERROR_BACKOFF", time.Minute),
		OrderPacing:   getEnvDuration("ORDER_PACING", time.Second),

		// Persistence
		StatePath:   getEnv("STATE_PATH", "bot_state.json"),
		JournalPath: getEnv("JOURNAL_PATH", "data/kalshibot.db"),

		// Telegram
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.MinPositionContracts < 1 {
		return nil, fmt.Errorf("MIN_POSITION_CONTRACTS must be >= 1")
	}
	if cfg.MaxPositionContracts < cfg.MinPositionContracts {
		return nil, fmt.Errorf("MAX_POSITION_CONTRACTS must be >= MIN_POSITION_CONTRACTS")
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
