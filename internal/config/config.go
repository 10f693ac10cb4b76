package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// Market data sources.
const (
	SourceBinance = "binance"
	SourceStatic  = "static"
)

// Config holds all runtime configuration for the paper-trading server.
type Config struct {
	Port     int
	LogLevel string

	Pair         domain.Pair
	TraderID     string
	InitialBase  decimal.Decimal
	InitialQuote decimal.Decimal

	MarketSource    string
	BinanceBaseURL  string
	RefreshInterval time.Duration
	QuoteTimeout    time.Duration
	BookDepth       int
	TradesLimit     int

	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Symbol returns the configured pair in "BASE/QUOTE" form.
func (c *Config) Symbol() string {
	return c.Pair.String()
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	pair, err := domain.ParsePair(getStr("SYMBOL", "BTC/USDT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYMBOL: %w", err)
	}

	initialBase, err := getDecimal("INITIAL_BASE", decimal.RequireFromString("1.0"))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_BASE: %w", err)
	}

	initialQuote, err := getDecimal("INITIAL_QUOTE", decimal.NewFromInt(50000))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_QUOTE: %w", err)
	}

	source := getStr("MARKET_SOURCE", SourceBinance)
	if source != SourceBinance && source != SourceStatic {
		return nil, fmt.Errorf("invalid MARKET_SOURCE: %q, must be one of: binance, static", source)
	}

	refreshInterval, err := getPositiveDuration("REFRESH_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}

	quoteTimeout, err := getPositiveDuration("QUOTE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TIMEOUT: %w", err)
	}

	bookDepth, err := getBoundedInt("BOOK_DEPTH", 20, 1, 100)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOK_DEPTH: %w", err)
	}

	tradesLimit, err := getBoundedInt("TRADES_LIMIT", 15, 1, 100)
	if err != nil {
		return nil, fmt.Errorf("invalid TRADES_LIMIT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		Pair:            pair,
		TraderID:        getStr("TRADER_ID", "user"),
		InitialBase:     initialBase,
		InitialQuote:    initialQuote,
		MarketSource:    source,
		BinanceBaseURL:  getStr("BINANCE_BASE_URL", ""),
		RefreshInterval: refreshInterval,
		QuoteTimeout:    quoteTimeout,
		BookDepth:       bookDepth,
		TradesLimit:     tradesLimit,
		AllowedOrigins:  getList("ALLOWED_ORIGINS", []string{"*"}),
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBoundedInt(key string, defaultVal, lo, hi int) (int, error) {
	n, err := getInt(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d is outside [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", d)
	}
	return d, nil
}

// getDecimal parses a non-negative decimal.
func getDecimal(key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", v)
	}
	return d, nil
}

// getList splits a comma-separated value, dropping empty entries.
func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
