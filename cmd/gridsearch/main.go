// Command gridsearch enumerates a parameter grid (or a structural
// experiment plan) for one agent family, evaluates every surviving
// tuple concurrently against a CSV price series, and prints a ranked
// top-20 table, writing a JSON result document when -out is given — the Go counterpart of
// grid_search_rsi_macd_bb.py / grid_search_rsi_macd_bb_l18.py, wired
// through this engine's Prometheus metrics and structured logging
// instead of bare print statements.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/chidi150c/btcgrid/internal/config"
	"github.com/chidi150c/btcgrid/internal/csvsource"
	"github.com/chidi150c/btcgrid/internal/gridsearch"
	"github.com/chidi150c/btcgrid/internal/logging"
	"github.com/chidi150c/btcgrid/internal/resultio"
	"github.com/chidi150c/btcgrid/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("gridsearch", flag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "optional .env file to load before applying flags")
	csvPath := fs.String("csv", "", "path to the OHLCV CSV to replay (overrides BTCGRID_CSV_PATH)")
	family := fs.String("family", "rsi_macd_bb", "ma_cross or rsi_macd_bb")
	experimentPlan := fs.String("experiment-plan", "", "path to a structural (L18-style) experiment plan JSON; overrides the Cartesian axes for rsi_macd_bb")

	shorts := fs.String("shorts", "5,10,20", "ma_cross: comma-separated short windows")
	longs := fs.String("longs", "20,50,100", "ma_cross: comma-separated long windows")
	minRatio := fs.Float64("min-ratio", 1.5, "ma_cross: long/short must exceed this ratio")

	rsiPeriods := fs.String("rsi-periods", "14", "rsi_macd_bb: comma-separated RSI periods")
	rsiOversolds := fs.String("rsi-oversolds", "30", "rsi_macd_bb: comma-separated RSI oversold thresholds")
	rsiOverboughts := fs.String("rsi-overboughts", "70", "rsi_macd_bb: comma-separated RSI overbought thresholds")
	macdFasts := fs.String("macd-fasts", "12", "rsi_macd_bb: comma-separated MACD fast periods")
	macdSlows := fs.String("macd-slows", "26", "rsi_macd_bb: comma-separated MACD slow periods")
	macdSignals := fs.String("macd-signals", "9", "rsi_macd_bb: comma-separated MACD signal periods")
	bbPeriods := fs.String("bb-periods", "20", "rsi_macd_bb: comma-separated Bollinger Bands periods")
	bbStdDevs := fs.String("bb-std-devs", "2.0", "rsi_macd_bb: comma-separated Bollinger Bands std-dev multipliers")
	stopLossPcts := fs.String("stop-loss-pcts", "", "rsi_macd_bb: comma-separated stop-loss fractions; empty means no stop-loss")
	trailingStopPcts := fs.String("trailing-stop-pcts", "", "rsi_macd_bb: comma-separated trailing-stop fractions; empty means no trailing-stop")
	minLookback := fs.Int("min-lookback", 0, "rsi_macd_bb: extra lookback floor applied to every tuple")

	concurrency := fs.Int("concurrency", 0, "worker pool size (overrides BTCGRID_CONCURRENCY)")
	initialBalance := fs.Float64("initial-balance", 0, "starting balance (overrides BTCGRID_INITIAL_BALANCE)")
	feeRate := fs.Float64("fee-rate", -1, "fraction of trade value charged as fee (overrides BTCGRID_FEE_RATE)")
	out := fs.String("out", "", "write the JSON result to this path")
	logPath := fs.String("log-file", "", "append progress lines to this file in addition to stderr")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090 (overrides BTCGRID_METRICS_ADDR)")
	logLevel := fs.String("log-level", "", "debug, info, warn, error (overrides BTCGRID_LOG_LEVEL)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridsearch: loading config: %v\n", err)
		return 1
	}
	if *csvPath != "" {
		cfg.CSVPath = *csvPath
	}
	if *initialBalance != 0 {
		cfg.InitialBalance = *initialBalance
	}
	if *feeRate >= 0 {
		cfg.FeeRate = *feeRate
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, true)

	bars, err := csvsource.Load(cfg.CSVPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridsearch: loading %s: %v\n", cfg.CSVPath, err)
		return 1
	}
	if len(bars) == 0 {
		fmt.Fprintf(os.Stderr, "gridsearch: %s contains no usable rows\n", cfg.CSVPath)
		return 1
	}

	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)
	stopMetricsServer := maybeServeMetrics(cfg.MetricsAddr, registry, logger)
	defer stopMetricsServer()

	onProgress := func(done, total int) {
		msg := fmt.Sprintf("progress: %d/%d (%.1f%%)", done, total, 100*float64(done)/float64(total))
		logger.Info().Msg(msg)
		if *logPath != "" {
			_ = resultio.AppendLog(*logPath, msg, time.Now())
		}
	}

	opts := gridsearch.Options{
		InitialBalance:   cfg.InitialBalance,
		FeeRate:          cfg.FeeRate,
		Concurrency:      cfg.Concurrency,
		Logger:           logger,
		OnProgress:       onProgress,
		ProgressInterval: 300 * time.Second,
	}

	switch *family {
	case "ma_cross":
		tuples := gridsearch.EnumerateMACross(gridsearch.MACrossAxes{
			Shorts:   parseIntList(*shorts),
			Longs:    parseIntList(*longs),
			MinRatio: *minRatio,
		})
		logger.Info().Int("candidate_tuples", len(tuples)).Msg("enumerated ma_cross grid")
		summary, err := gridsearch.SearchMACross(context.Background(), bars, tuples, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gridsearch: %v\n", err)
			return 1
		}
		reportMACrossResults(metrics, summary)
		return finish(summary, *out)

	case "rsi_macd_bb":
		var tuples []gridsearch.RSIMACDBBTuple
		if *experimentPlan != "" {
			plan, err := resultio.ReadExperimentPlan(*experimentPlan)
			if err != nil {
				fmt.Fprintf(os.Stderr, "gridsearch: reading experiment plan %s: %v\n", *experimentPlan, err)
				return 1
			}
			tuples = gridsearch.TuplesFromExperimentPlan(plan, *minLookback)
		} else {
			tuples = gridsearch.EnumerateRSIMACDBB(gridsearch.RSIMACDBBAxes{
				RSIPeriods:       parseIntList(*rsiPeriods),
				RSIOversolds:     parseFloatList(*rsiOversolds),
				RSIOverboughts:   parseFloatList(*rsiOverboughts),
				MACDFasts:        parseIntList(*macdFasts),
				MACDSlows:        parseIntList(*macdSlows),
				MACDSignals:      parseIntList(*macdSignals),
				BBPeriods:        parseIntList(*bbPeriods),
				BBStdDevs:        parseFloatList(*bbStdDevs),
				StopLossPcts:     parseFloatList(*stopLossPcts),
				TrailingStopPcts: parseFloatList(*trailingStopPcts),
				MinLookback:      *minLookback,
			}, len(bars))
		}
		logger.Info().Int("candidate_tuples", len(tuples)).Msg("enumerated rsi_macd_bb grid")
		summary, err := gridsearch.SearchRSIMACDBB(context.Background(), bars, tuples, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gridsearch: %v\n", err)
			return 1
		}
		reportRSIMACDBBResults(metrics, summary)
		return finish(summary, *out)

	default:
		fmt.Fprintf(os.Stderr, "gridsearch: unknown family %q\n", *family)
		return 1
	}
}

// maybeServeMetrics starts a /metrics HTTP server bound to addr when addr
// is non-empty, returning a function that shuts it down; when addr is
// empty it returns a no-op stopper. Errors booting the listener are
// logged, not fatal — a grid search that can't serve metrics should
// still finish and print its results.
func maybeServeMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func parseIntList(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := strconv.Atoi(part); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func parseFloatList(s string) []float64 {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if v, err := strconv.ParseFloat(part, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func reportMACrossResults(metrics *telemetry.Metrics, summary gridsearch.Summary[gridsearch.MACrossTuple]) {
	metrics.TuplesEvaluated.Add(float64(summary.TotalTested))
	metrics.TuplesFiltered.Add(float64(summary.TotalFiltered))
	if summary.Best != nil {
		metrics.SetBestProfit(summary.Best.ProfitPercentage)
	}
	printTopN(summary.AllResults, 20)
}

func reportRSIMACDBBResults(metrics *telemetry.Metrics, summary gridsearch.Summary[gridsearch.RSIMACDBBTuple]) {
	metrics.TuplesEvaluated.Add(float64(summary.TotalTested))
	metrics.TuplesFiltered.Add(float64(summary.TotalFiltered))
	if summary.Best != nil {
		metrics.SetBestProfit(summary.Best.ProfitPercentage)
	}
	printTopN(summary.AllResults, 20)
}

func printTopN[T gridsearch.Tuple](results []gridsearch.RunResult[T], n int) {
	fmt.Println(strings.Repeat("=", 100))
	fmt.Printf("Search summary: %d tuples tested\n", len(results))
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-5s %-50s %10s %8s %14s\n", "Rank", "Agent ID", "Profit%", "Trades", "Final Value")
	fmt.Println(strings.Repeat("-", 100))
	if n > len(results) {
		n = len(results)
	}
	for i := 0; i < n; i++ {
		r := results[i]
		fmt.Printf("%-5d %-50s %10.2f %8d %14.2f\n", i+1, r.Tuple.AgentID(), r.ProfitPercentage, r.TotalTrades, r.FinalValue)
	}
	fmt.Println(strings.Repeat("=", 100))
}

func finish[T gridsearch.Tuple](summary gridsearch.Summary[T], out string) int {
	if out == "" {
		return 0
	}
	payload := map[string]any{
		"all_results": summary.AllResults,
		"best_result": summary.Best,
		"summary": map[string]any{
			"total_tested":         summary.TotalTested,
			"total_filtered":       summary.TotalFiltered,
			"relative_performance": summary.RelativePerformance,
		},
	}
	if err := resultio.WriteJSON(out, payload); err != nil {
		fmt.Fprintf(os.Stderr, "gridsearch: writing %s: %v\n", out, err)
		return 1
	}
	return 0
}
