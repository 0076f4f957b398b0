// Package gridsearch enumerates a Cartesian product of agent parameter
// axes, filters out structurally invalid tuples, and evaluates the
// survivors concurrently against one bar series, ranking by profit
// percentage (spec §4.F, grid_search_rsi_macd_bb.py).
package gridsearch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/chidi150c/btcgrid/internal/agent"
	"github.com/chidi150c/btcgrid/internal/model"
	"github.com/chidi150c/btcgrid/internal/resultio"
	"github.com/chidi150c/btcgrid/internal/simulate"
)

// Tuple is a parameter combination that knows its own stable identifier
// and the lookback window it requires.
type Tuple interface {
	AgentID() string
	RequiredLookback() int
}

// MACrossTuple is the parameter pair for the moving-average crossover
// family (spec §8 Scenario 5).
type MACrossTuple struct {
	Short int
	Long  int
}

func (t MACrossTuple) AgentID() string       { return fmt.Sprintf("ma_cross_s%d_l%d", t.Short, t.Long) }
func (t MACrossTuple) RequiredLookback() int { return t.Long }

// MACrossAxes is the set of candidate values and the validity constraint
// for an MA-cross grid search: Short must be less than Long, and
// Long/Short must exceed MinRatio (strictly — spec §8 Scenario 5 shows a
// tuple with ratio exactly equal to MinRatio is rejected).
type MACrossAxes struct {
	Shorts   []int
	Longs    []int
	MinRatio float64
}

// EnumerateMACross returns every (short, long) pair from axes that
// satisfies short < long and long/short > MinRatio.
func EnumerateMACross(axes MACrossAxes) []MACrossTuple {
	var out []MACrossTuple
	for _, s := range axes.Shorts {
		for _, l := range axes.Longs {
			if s >= l {
				continue
			}
			if float64(l)/float64(s) <= axes.MinRatio {
				continue
			}
			out = append(out, MACrossTuple{Short: s, Long: l})
		}
	}
	return out
}

// RSIMACDBBTuple is the parameter tuple for the three-way conjunction
// agent, the dominant grid-search target (grid_search_rsi_macd_bb.py).
type RSIMACDBBTuple struct {
	RSIPeriod       int
	RSIOversold     float64
	RSIOverbought   float64
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BBPeriod        int
	BBStdDev        float64
	StopLossPct     *float64
	TrailingStopPct *float64
	MinLookback     int

	// ExperimentNumber is non-nil when this tuple came from a structural
	// (L18-style) experiment plan rather than a full Cartesian product.
	ExperimentNumber *int
}

func (t RSIMACDBBTuple) RequiredLookback() int {
	return max4(t.MACDSlow+t.MACDSignal, t.RSIPeriod+1, t.BBPeriod, t.MinLookback)
}

func (t RSIMACDBBTuple) AgentID() string {
	slStr, tsStr := "nosl", "nots"
	if t.StopLossPct != nil {
		slStr = fmt.Sprintf("sl%dpct", int(*t.StopLossPct*100))
	}
	if t.TrailingStopPct != nil {
		tsStr = fmt.Sprintf("ts%dpct", int(*t.TrailingStopPct*100))
	}
	id := fmt.Sprintf("rsi_macd_bb_r%d_os%.0f_ob%.0f_f%d_s%d_sig%d_bbp%d_bbstd%.1f_%s_%s",
		t.RSIPeriod, t.RSIOversold, t.RSIOverbought, t.MACDFast, t.MACDSlow, t.MACDSignal, t.BBPeriod, t.BBStdDev, slStr, tsStr)
	if t.ExperimentNumber != nil {
		return fmt.Sprintf("l18_exp%d_%s", *t.ExperimentNumber, id)
	}
	return id
}

func max4(a, b, c, d int) int {
	m := a
	for _, v := range []int{b, c, d} {
		if v > m {
			m = v
		}
	}
	return m
}

// RSIMACDBBAxes is the candidate-value set for a Cartesian RSI+MACD+BB
// search. Nil StopLossPcts/TrailingStopPcts means "no stop-loss"/"no
// trailing-stop" is the only value tried, matching the original's
// `stop_loss_percentages=None` default.
type RSIMACDBBAxes struct {
	RSIPeriods       []int
	RSIOversolds     []float64
	RSIOverboughts   []float64
	MACDFasts        []int
	MACDSlows        []int
	MACDSignals      []int
	BBPeriods        []int
	BBStdDevs        []float64
	StopLossPcts     []float64
	TrailingStopPcts []float64
	MinLookback      int
}

// EnumerateRSIMACDBB returns every structurally valid tuple: MACDFast
// must be less than MACDSlow, and the resulting lookback requirement
// plus a 100-bar safety margin must not exceed dataLen (the original's
// `min_lookback_required + 100 < len(price_data)` guard, inverted here
// to "must fit").
func EnumerateRSIMACDBB(axes RSIMACDBBAxes, dataLen int) []RSIMACDBBTuple {
	stopLosses := axes.StopLossPcts
	if len(stopLosses) == 0 {
		stopLosses = []float64{0}
	}
	trailing := axes.TrailingStopPcts
	if len(trailing) == 0 {
		trailing = []float64{0}
	}

	var out []RSIMACDBBTuple
	for _, rp := range axes.RSIPeriods {
		for _, ros := range axes.RSIOversolds {
			for _, rob := range axes.RSIOverboughts {
				for _, mf := range axes.MACDFasts {
					for _, ms := range axes.MACDSlows {
						if mf >= ms {
							continue
						}
						for _, msig := range axes.MACDSignals {
							for _, bp := range axes.BBPeriods {
								for _, bstd := range axes.BBStdDevs {
									for _, sl := range stopLosses {
										for _, ts := range trailing {
											t := RSIMACDBBTuple{
												RSIPeriod: rp, RSIOversold: ros, RSIOverbought: rob,
												MACDFast: mf, MACDSlow: ms, MACDSignal: msig,
												BBPeriod: bp, BBStdDev: bstd,
												MinLookback: axes.MinLookback,
											}
											if len(axes.StopLossPcts) > 0 {
												v := sl
												t.StopLossPct = &v
											}
											if len(axes.TrailingStopPcts) > 0 {
												v := ts
												t.TrailingStopPct = &v
											}
											if t.RequiredLookback()+100 > dataLen {
												continue
											}
											out = append(out, t)
										}
									}
								}
							}
						}
					}
				}
			}
		}
	}
	return out
}

// TuplesFromExperimentPlan turns a structural (L18-style) experiment
// plan into RSIMACDBBTuples, one per plan row, each tagged with its
// ExperimentNumber so AgentID carries the "l18_exp<N>_" prefix. minLookback
// is the same floor EnumerateRSIMACDBB applies via axes.MinLookback.
func TuplesFromExperimentPlan(plan resultio.ExperimentPlan, minLookback int) []RSIMACDBBTuple {
	out := make([]RSIMACDBBTuple, 0, len(plan.Experiments))
	for _, e := range plan.Experiments {
		n := e.ExperimentNumber
		sl := e.StopLoss
		out = append(out, RSIMACDBBTuple{
			RSIPeriod:        e.RSIPeriod,
			RSIOversold:      e.RSIOversold,
			RSIOverbought:    e.RSIOverbought,
			MACDFast:         e.MACDFast,
			MACDSlow:         e.MACDSlow,
			MACDSignal:       e.MACDSignal,
			BBPeriod:         e.BBPeriod,
			BBStdDev:         e.BBStdDev,
			StopLossPct:      &sl,
			MinLookback:      minLookback,
			ExperimentNumber: &n,
		})
	}
	return out
}

// buildRSIMACDBBAgent constructs the overlay chain for one tuple: base,
// optionally wrapped by stop-loss, optionally further wrapped by
// trailing-stop — the fixed composition order from spec §9.
func buildRSIMACDBBAgent(id string, t RSIMACDBBTuple) agent.Agent {
	var a agent.Agent = agent.NewRSIMACDBollinger(id, t.RSIPeriod, t.RSIOversold, t.RSIOverbought, t.MACDFast, t.MACDSlow, t.MACDSignal, t.BBPeriod, t.BBStdDev)
	if t.StopLossPct != nil {
		a = agent.NewStopLoss(a, *t.StopLossPct)
	}
	if t.TrailingStopPct != nil {
		a = agent.NewTrailingStop(a, *t.TrailingStopPct)
	}
	return a
}

func buildMACrossAgent(id string, t MACrossTuple) agent.Agent {
	return agent.NewMACross(id, t.Short, t.Long)
}

// RunResult pairs a tuple with the simulation outcome it produced.
type RunResult[T Tuple] struct {
	Tuple               T
	simulate.Result
	TrailingStopTrades int
}

// Summary is the ranked outcome of a full search.
type Summary[T Tuple] struct {
	AllResults          []RunResult[T]
	Best                *RunResult[T]
	TotalTested         int
	TotalFiltered       int
	RelativePerformance float64 // best profit % / buy-and-hold % over the bar series; 0 if undefined
}

// Options configures a Search call.
type Options struct {
	InitialBalance float64
	FeeRate        float64
	Concurrency    int // <=0 defaults to 4
	Logger         zerolog.Logger
	// OnProgress is called from a single goroutine at a time (never
	// concurrently) every time 5% more of the total has completed, or
	// every ProgressInterval of wall-clock time, whichever comes first.
	OnProgress       func(done, total int)
	ProgressInterval time.Duration // defaults to 300s
}

// Search evaluates every tuple against bars with a bounded worker pool
// and returns the ranked summary. It never aborts on a single tuple's
// failure — InsufficientData and similar are logged and that tuple is
// dropped from AllResults, counted in TotalFiltered.
func Search[T Tuple](ctx context.Context, bars []model.Bar, tuples []T, build func(id string, t T) agent.Agent, opts Options) (Summary[T], error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = 300 * time.Second
	}

	total := len(tuples)
	results := make([]*RunResult[T], total)

	var mu sync.Mutex
	done := 0
	lastPct := 0
	lastTick := time.Time{}
	filtered := 0

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)

	for i, t := range tuples {
		i, t := i, t
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return Summary[T]{}, ctx.Err()
		}
		g.Go(func() error {
			defer func() { <-sem }()

			id := t.AgentID()
			a := build(id, t)
			res, err := simulate.Run(a, bars, simulate.Options{
				InitialBalance: opts.InitialBalance,
				FeeRate:        opts.FeeRate,
				Lookback:       t.RequiredLookback(),
				FillMode:       simulate.FullPosition,
			})

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				filtered++
				opts.Logger.Warn().Str("agent_id", id).Err(err).Msg("tuple skipped")
			} else {
				trailing := 0
				for _, d := range res.Decisions {
					if strings.Contains(d.Reason, "Trailing Stop triggered") {
						trailing++
					}
				}
				results[i] = &RunResult[T]{Tuple: t, Result: res, TrailingStopTrades: trailing}
			}

			pct := done * 100 / max(1, total)
			if opts.OnProgress != nil && (pct >= lastPct+5 || time.Since(lastTick) >= interval) {
				lastPct = pct - pct%5
				lastTick = time.Now()
				opts.OnProgress(done, total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary[T]{}, err
	}

	all := make([]RunResult[T], 0, total)
	for _, r := range results {
		if r != nil {
			all = append(all, *r)
		}
	}
	rankResults(all)

	summary := Summary[T]{
		AllResults:    all,
		TotalTested:   len(all),
		TotalFiltered: filtered,
	}
	if len(all) > 0 {
		best := all[0]
		summary.Best = &best
	}
	if len(bars) > 1 && bars[0].Close > 0 && summary.Best != nil {
		priceChangePct := (bars[len(bars)-1].Close - bars[0].Close) / bars[0].Close * 100
		if priceChangePct != 0 {
			summary.RelativePerformance = summary.Best.ProfitPercentage / priceChangePct
		}
	}
	return summary, nil
}

// rankResults sorts by profit percentage descending, breaking ties by
// the tuple's agent id so ranking is deterministic across runs.
func rankResults[T Tuple](all []RunResult[T]) {
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.ProfitPercentage != b.ProfitPercentage {
			return a.ProfitPercentage > b.ProfitPercentage
		}
		return a.Tuple.AgentID() < b.Tuple.AgentID()
	})
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SearchMACross is a thin convenience wrapper over Search for the
// MA-cross family, used by both the CLI driver and tests.
func SearchMACross(ctx context.Context, bars []model.Bar, tuples []MACrossTuple, opts Options) (Summary[MACrossTuple], error) {
	return Search(ctx, bars, tuples, buildMACrossAgent, opts)
}

// SearchRSIMACDBB is the convenience wrapper for the RSI+MACD+BB family,
// the primary grid-search target (spec §4.F).
func SearchRSIMACDBB(ctx context.Context, bars []model.Bar, tuples []RSIMACDBBTuple, opts Options) (Summary[RSIMACDBBTuple], error) {
	return Search(ctx, bars, tuples, buildRSIMACDBBAgent, opts)
}
