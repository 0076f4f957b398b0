// Package config loads the backtesting engine's runtime knobs from the
// process environment, optionally hydrated from a .env file. The .env
// parsing itself is delegated to godotenv; only the typed accessor layer
// (getEnv/getEnvFloat/getEnvInt/getEnvBool) is kept from the teacher's
// hand-rolled loader, since godotenv only populates os.Environ and
// something still has to turn strings into the right Go types.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load hydrates the process environment from path (if it exists; a
// missing .env is not an error, matching the original's best-effort
// loader) without overriding variables already set, then returns a
// Config built from the result.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

// Config holds the knobs shared by cmd/backtest and cmd/gridsearch.
type Config struct {
	CSVPath        string
	InitialBalance float64
	FeeRate        float64
	Lookback       int
	FillMode       string  // "fractional" or "full"
	StopLossPct    float64 // 0 disables
	TrailingPct    float64 // 0 disables
	MetricsAddr    string  // empty disables the /metrics server
	Concurrency    int
	LogLevel       string
	StructuralPlan bool // read from BTCGRID_STRUCTURAL_PLAN; cmd/gridsearch does not consult it and selects the experiment-plan mode from its -experiment-plan flag
}

// FromEnv reads the process env (already hydrated by Load) and returns a
// Config with defaults for anything missing.
func FromEnv() Config {
	return Config{
		CSVPath:        getEnv("BTCGRID_CSV_PATH", "data/btc_prices.csv"),
		InitialBalance: getEnvFloat("BTCGRID_INITIAL_BALANCE", 10000.0),
		FeeRate:        getEnvFloat("BTCGRID_FEE_RATE", 0.001),
		Lookback:       getEnvInt("BTCGRID_LOOKBACK", 100),
		FillMode:       getEnv("BTCGRID_FILL_MODE", "fractional"),
		StopLossPct:    getEnvFloat("BTCGRID_STOP_LOSS_PCT", 0),
		TrailingPct:    getEnvFloat("BTCGRID_TRAILING_STOP_PCT", 0),
		MetricsAddr:    getEnv("BTCGRID_METRICS_ADDR", ""),
		Concurrency:    getEnvInt("BTCGRID_CONCURRENCY", 4),
		LogLevel:       getEnv("BTCGRID_LOG_LEVEL", "info"),
		StructuralPlan: getEnvBool("BTCGRID_STRUCTURAL_PLAN", false),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
