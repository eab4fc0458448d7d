package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Orchestrator
	ExecMaxRetries      int
	ExecAttemptTimeout  time.Duration
	ExecBackoffInitial  time.Duration
	ExecBackoffMax      time.Duration
	ExecBackoffMult     float64
	ExecFailoverEnabled bool

	// Router
	RouteSplitThreshold float64
	RouteSplitMaxVenues int
	RouteBookDepth      int
	RouteHistorySize    int
	RouteSnapshotTTL    time.Duration

	// Latency optimizer
	LatencyWindowSize    int
	LatencySummaryWindow time.Duration
	LatencyTarget        time.Duration
	LatencyP95Ceiling    time.Duration

	// Circuit breaker
	BreakerMaxDrawdownPct       float64
	BreakerVolatilityThreshold  float64
	BreakerMaxConsecutiveLosses int
	BreakerMaxAPIErrors         int
	BreakerMaxSpreadMultiple    float64
	BreakerCooldown             time.Duration
	BreakerCheckInterval        time.Duration
	BreakerHistorySize          int

	// Loss guard (secondary breaker policy)
	LossGuardEnabled      bool
	LossGuardMaxDailyLoss float64 // fraction of start-of-day capital
	LossGuardMaxSlippage  float64 // bps per trade
	LossGuardMaxBreaches  int

	// Risk engine
	RiskCapital            float64
	RiskMaxTradeSizePct    float64
	RiskMaxOpenPositions   int
	RiskMinPositionSize    float64
	RiskMaxPositionSizePct float64
	RiskMinConfidence      float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Orchestrator defaults
		ExecMaxRetries:      getIntOrDefault("EXEC_MAX_RETRIES", 3),
		ExecAttemptTimeout:  getDurationOrDefault("EXEC_ATTEMPT_TIMEOUT", 10*time.Second),
		ExecBackoffInitial:  getDurationOrDefault("EXEC_BACKOFF_INITIAL", 200*time.Millisecond),
		ExecBackoffMax:      getDurationOrDefault("EXEC_BACKOFF_MAX", 5*time.Second),
		ExecBackoffMult:     getFloat64OrDefault("EXEC_BACKOFF_MULTIPLIER", 2.0),
		ExecFailoverEnabled: getBoolOrDefault("EXEC_FAILOVER_ENABLED", true),

		// Router defaults
		RouteSplitThreshold: getFloat64OrDefault("ROUTE_SPLIT_THRESHOLD", 10.0),
		RouteSplitMaxVenues: getIntOrDefault("ROUTE_SPLIT_MAX_VENUES", 3),
		RouteBookDepth:      getIntOrDefault("ROUTE_BOOK_DEPTH", 20),
		RouteHistorySize:    getIntOrDefault("ROUTE_HISTORY_SIZE", 1000),
		RouteSnapshotTTL:    getDurationOrDefault("ROUTE_SNAPSHOT_TTL", 500*time.Millisecond),

		// Latency optimizer defaults
		LatencyWindowSize:    getIntOrDefault("LATENCY_WINDOW_SIZE", 1000),
		LatencySummaryWindow: getDurationOrDefault("LATENCY_SUMMARY_WINDOW", 5*time.Minute),
		LatencyTarget:        getDurationOrDefault("LATENCY_TARGET", 500*time.Millisecond),
		LatencyP95Ceiling:    getDurationOrDefault("LATENCY_P95_CEILING", 3*time.Second),

		// Circuit breaker defaults
		BreakerMaxDrawdownPct:       getFloat64OrDefault("BREAKER_MAX_DRAWDOWN_PCT", 0.10),
		BreakerVolatilityThreshold:  getFloat64OrDefault("BREAKER_VOLATILITY_THRESHOLD", 2.5),
		BreakerMaxConsecutiveLosses: getIntOrDefault("BREAKER_MAX_CONSECUTIVE_LOSSES", 5),
		BreakerMaxAPIErrors:         getIntOrDefault("BREAKER_MAX_API_ERRORS", 10),
		BreakerMaxSpreadMultiple:    getFloat64OrDefault("BREAKER_MAX_SPREAD_MULTIPLE", 3.0),
		BreakerCooldown:             getDurationOrDefault("BREAKER_COOLDOWN", 30*time.Minute),
		BreakerCheckInterval:        getDurationOrDefault("BREAKER_CHECK_INTERVAL", 60*time.Second),
		BreakerHistorySize:          getIntOrDefault("BREAKER_HISTORY_SIZE", 100),

		// Loss guard defaults
		LossGuardEnabled:      getBoolOrDefault("LOSSGUARD_ENABLED", true),
		LossGuardMaxDailyLoss: getFloat64OrDefault("LOSSGUARD_MAX_DAILY_LOSS", 0.05),
		LossGuardMaxSlippage:  getFloat64OrDefault("LOSSGUARD_MAX_SLIPPAGE_BPS", 50.0),
		LossGuardMaxBreaches:  getIntOrDefault("LOSSGUARD_MAX_BREACHES", 3),

		// Risk defaults
		RiskCapital:            getFloat64OrDefault("RISK_CAPITAL", 100000.0),
		RiskMaxTradeSizePct:    getFloat64OrDefault("RISK_MAX_TRADE_SIZE_PCT", 0.15),
		RiskMaxOpenPositions:   getIntOrDefault("RISK_MAX_OPEN_POSITIONS", 10),
		RiskMinPositionSize:    getFloat64OrDefault("RISK_MIN_POSITION_SIZE", 10.0),
		RiskMaxPositionSizePct: getFloat64OrDefault("RISK_MAX_POSITION_SIZE_PCT", 0.25),
		RiskMinConfidence:      getFloat64OrDefault("RISK_MIN_CONFIDENCE", 0.55),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "smartroute"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "smartroute123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "smartroute"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.ExecMaxRetries < 1 {
		return fmt.Errorf("EXEC_MAX_RETRIES must be at least 1, got %d", c.ExecMaxRetries)
	}

	if c.ExecBackoffMult < 1.0 {
		return fmt.Errorf("EXEC_BACKOFF_MULTIPLIER must be >= 1.0, got %f", c.ExecBackoffMult)
	}

	if c.BreakerMaxDrawdownPct <= 0 || c.BreakerMaxDrawdownPct >= 1.0 {
		return fmt.Errorf("BREAKER_MAX_DRAWDOWN_PCT must be between 0 and 1.0, got %f", c.BreakerMaxDrawdownPct)
	}

	if c.RiskMaxTradeSizePct <= 0 || c.RiskMaxTradeSizePct > 1.0 {
		return fmt.Errorf("RISK_MAX_TRADE_SIZE_PCT must be between 0 and 1.0, got %f", c.RiskMaxTradeSizePct)
	}

	if c.RiskCapital <= 0 {
		return fmt.Errorf("RISK_CAPITAL must be positive, got %f", c.RiskCapital)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
