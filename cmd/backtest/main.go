// Command backtest runs one agent, built from its template name and
// parameters, over a CSV price series and writes a JSON result. It
// mirrors the teacher's main.go boot sequence (load env, build config,
// wire logging, run, exit) collapsed to a single-shot CLI instead of a
// long-lived server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/btcgrid/internal/agent"
	"github.com/chidi150c/btcgrid/internal/config"
	"github.com/chidi150c/btcgrid/internal/csvsource"
	"github.com/chidi150c/btcgrid/internal/logging"
	"github.com/chidi150c/btcgrid/internal/resultio"
	"github.com/chidi150c/btcgrid/internal/simulate"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "optional .env file to load before applying flags")
	csvPath := fs.String("csv", "", "path to the OHLCV CSV to replay (overrides BTCGRID_CSV_PATH)")
	template := fs.String("template", "ma_cross", "agent template: ma_cross, rsi_bollinger, macd_bollinger, rsi_macd_bollinger")
	short := fs.Int("short", 5, "ma_cross: short window")
	long := fs.Int("long", 20, "ma_cross: long window")
	rsiPeriod := fs.Int("rsi-period", 14, "RSI period (rsi_bollinger, rsi_macd_bollinger)")
	rsiOversold := fs.Float64("rsi-oversold", 30, "RSI oversold threshold")
	rsiOverbought := fs.Float64("rsi-overbought", 70, "RSI overbought threshold")
	macdFast := fs.Int("macd-fast", 12, "MACD fast EMA period")
	macdSlow := fs.Int("macd-slow", 26, "MACD slow EMA period")
	macdSignal := fs.Int("macd-signal", 9, "MACD signal period")
	bbPeriod := fs.Int("bb-period", 20, "Bollinger Bands period")
	bbStdDev := fs.Float64("bb-std-dev", 2.0, "Bollinger Bands standard-deviation multiplier")
	stopLossPct := fs.Float64("stop-loss-pct", 0, "stop-loss percentage as a fraction, 0 disables")
	trailingPct := fs.Float64("trailing-stop-pct", 0, "trailing-stop percentage as a fraction, 0 disables")
	lookback := fs.Int("lookback", 0, "bars of warm-up before the first decision; 0 uses BTCGRID_LOOKBACK (default 100)")
	fillMode := fs.String("fill-mode", "", "fractional or full (overrides BTCGRID_FILL_MODE)")
	initialBalance := fs.Float64("initial-balance", 0, "starting balance (overrides BTCGRID_INITIAL_BALANCE)")
	feeRate := fs.Float64("fee-rate", -1, "fraction of trade value charged as fee (overrides BTCGRID_FEE_RATE)")
	out := fs.String("out", "", "write the JSON result to this path instead of stdout")
	logLevel := fs.String("log-level", "", "debug, info, warn, error (overrides BTCGRID_LOG_LEVEL)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: loading config: %v\n", err)
		return 1
	}
	if *csvPath != "" {
		cfg.CSVPath = *csvPath
	}
	if *fillMode != "" {
		cfg.FillMode = *fillMode
	}
	if *initialBalance != 0 {
		cfg.InitialBalance = *initialBalance
	}
	if *feeRate >= 0 {
		cfg.FeeRate = *feeRate
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, true)

	bars, err := csvsource.Load(cfg.CSVPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: loading %s: %v\n", cfg.CSVPath, err)
		return 1
	}
	if len(bars) == 0 {
		fmt.Fprintf(os.Stderr, "backtest: %s contains no usable rows\n", cfg.CSVPath)
		return 1
	}

	a, id, err := buildAgent(*template, agentParams{
		short: *short, long: *long,
		rsiPeriod: *rsiPeriod, rsiOversold: *rsiOversold, rsiOverbought: *rsiOverbought,
		macdFast: *macdFast, macdSlow: *macdSlow, macdSignal: *macdSignal,
		bbPeriod: *bbPeriod, bbStdDev: *bbStdDev,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		return 1
	}
	if *stopLossPct > 0 {
		a = agent.NewStopLoss(a, *stopLossPct)
	}
	if *trailingPct > 0 {
		a = agent.NewTrailingStop(a, *trailingPct)
	}

	fm := simulate.Fractional
	if strings.EqualFold(cfg.FillMode, "full") {
		fm = simulate.FullPosition
	}

	effectiveLookback := *lookback
	if effectiveLookback <= 0 {
		effectiveLookback = cfg.Lookback
	}

	logger.Info().Str("agent_id", id).Int("bars", len(bars)).Str("fill_mode", cfg.FillMode).Msg("starting backtest")
	started := time.Now()

	result, err := simulate.Run(a, bars, simulate.Options{
		InitialBalance: cfg.InitialBalance,
		FeeRate:        cfg.FeeRate,
		Lookback:       effectiveLookback,
		FillMode:       fm,
		Logger:         logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		return 1
	}

	logger.Info().
		Str("agent_id", id).
		Float64("profit_pct", result.ProfitPercentage).
		Int("trades", result.TotalTrades).
		Dur("elapsed", time.Since(started)).
		Msg("backtest complete")

	payload := map[string]any{
		"agent_id":    id,
		"result":      result,
		"performance": result.Performance(),
	}

	if *out == "" {
		return printJSON(payload)
	}
	if err := resultio.WriteJSON(*out, payload); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: writing %s: %v\n", *out, err)
		return 1
	}
	return 0
}

type agentParams struct {
	short, long                    int
	rsiPeriod                      int
	rsiOversold, rsiOverbought     float64
	macdFast, macdSlow, macdSignal int
	bbPeriod                       int
	bbStdDev                       float64
}

func buildAgent(template string, p agentParams) (agent.Agent, string, error) {
	switch template {
	case "ma_cross":
		id := fmt.Sprintf("ma_cross_s%d_l%d", p.short, p.long)
		return agent.NewMACross(id, p.short, p.long), id, nil
	case "rsi_bollinger":
		id := fmt.Sprintf("rsi_bb_r%d_os%s_ob%s_bbp%d_bbstd%s", p.rsiPeriod, trimFloat(p.rsiOversold), trimFloat(p.rsiOverbought), p.bbPeriod, trimFloat(p.bbStdDev))
		return agent.NewRSIBollinger(id, p.rsiPeriod, p.rsiOversold, p.rsiOverbought, p.bbPeriod, p.bbStdDev), id, nil
	case "macd_bollinger":
		id := fmt.Sprintf("macd_bb_f%d_s%d_sig%d_bbp%d_bbstd%s", p.macdFast, p.macdSlow, p.macdSignal, p.bbPeriod, trimFloat(p.bbStdDev))
		return agent.NewMACDBollinger(id, p.macdFast, p.macdSlow, p.macdSignal, p.bbPeriod, p.bbStdDev), id, nil
	case "rsi_macd_bollinger":
		id := fmt.Sprintf("rsi_macd_bb_r%d_os%s_ob%s_f%d_s%d_sig%d_bbp%d_bbstd%s",
			p.rsiPeriod, trimFloat(p.rsiOversold), trimFloat(p.rsiOverbought), p.macdFast, p.macdSlow, p.macdSignal, p.bbPeriod, trimFloat(p.bbStdDev))
		return agent.NewRSIMACDBollinger(id, p.rsiPeriod, p.rsiOversold, p.rsiOverbought, p.macdFast, p.macdSlow, p.macdSignal, p.bbPeriod, p.bbStdDev), id, nil
	default:
		return nil, "", fmt.Errorf("unknown agent template %q", template)
	}
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func printJSON(payload any) int {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: encoding result: %v\n", err)
		return 1
	}
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
	return 0
}
