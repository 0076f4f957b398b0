// Package multisim aligns a fast and a slow bar series by timestamp and
// replays a multi-timeframe agent across the aligned rows, always in
// full-position fill mode (multi_timeframe_simulator.py never offers the
// fractional mode).
package multisim

import (
	"errors"
	"sort"

	"github.com/chidi150c/btcgrid/internal/agent"
	"github.com/chidi150c/btcgrid/internal/model"
	"github.com/chidi150c/btcgrid/internal/simulate"
)

// ErrInsufficientData is returned when fewer aligned rows than the fast
// lookback window requires are available.
var ErrInsufficientData = errors.New("multisim: fewer aligned rows than the fast lookback window requires")

// AlignTimeframes sorts fast and slow by timestamp and pairs each fast
// bar with the length of the causal prefix of slow bars at or before it
// (an upper-bound binary search, matching bisect.bisect_right). Fast bars
// that precede every slow bar (prefix length 0) are dropped, since there
// is no slow history to evaluate them against.
func AlignTimeframes(fast, slow []model.Bar) (aligned []model.AlignedRow, slowSorted []model.Bar) {
	slowSorted = append([]model.Bar(nil), slow...)
	sort.Slice(slowSorted, func(i, j int) bool { return slowSorted[i].Time.Before(slowSorted[j].Time) })

	fastSorted := append([]model.Bar(nil), fast...)
	sort.Slice(fastSorted, func(i, j int) bool { return fastSorted[i].Time.Before(fastSorted[j].Time) })

	aligned = make([]model.AlignedRow, 0, len(fastSorted))
	for _, f := range fastSorted {
		idx := sort.Search(len(slowSorted), func(i int) bool { return slowSorted[i].Time.After(f.Time) })
		if idx > 0 {
			aligned = append(aligned, model.AlignedRow{Fast: f, SlowPrefixLen: idx})
		}
	}
	return aligned, slowSorted
}

// Options configures a Run call.
type Options struct {
	InitialBalance float64
	FeeRate        float64
	FastLookback   int
	SlowLookback   int
}

// Run replays a through the aligned rows, computing the agent's fast
// history as the preceding FastLookback aligned rows and its slow history
// as the trailing SlowLookback-sized window of the causal slow prefix at
// each row (multi_timeframe_simulator.py's historical_1h_window).
func Run(a *agent.RSIMACDMultiTimeframe, aligned []model.AlignedRow, slowSorted []model.Bar, opts Options) (simulate.Result, error) {
	if len(aligned) <= opts.FastLookback {
		return simulate.Result{}, ErrInsufficientData
	}

	state := model.NewSimulatorState(opts.InitialBalance)
	agentID := a.ID()

	for i := opts.FastLookback; i < len(aligned); i++ {
		row := aligned[i]
		fastHistory := make([]model.Bar, opts.FastLookback)
		for j := 0; j < opts.FastLookback; j++ {
			fastHistory[j] = aligned[i-opts.FastLookback+j].Fast
		}

		slowPrefix := slowSorted[:row.SlowPrefixLen]
		slowHistory := slowPrefix
		if len(slowPrefix) > opts.SlowLookback {
			slowHistory = slowPrefix[len(slowPrefix)-opts.SlowLookback:]
		}

		decision := a.Decide(row.Fast, fastHistory, slowHistory)

		order, err := simulate.Fill(state, decision, row.Fast.Close, opts.FeeRate, simulate.FullPosition)
		if err != nil {
			state.Decisions = append(state.Decisions, decision)
			continue
		}
		if order != nil {
			state.Trades = append(state.Trades, *order)
		}
		state.Decisions = append(state.Decisions, decision)
	}

	final := aligned[len(aligned)-1].Fast
	finalValue := state.Balance + state.Holdings*final.Close
	totalProfit := finalValue - opts.InitialBalance

	buy, sell := 0, 0
	for _, t := range state.Trades {
		switch t.Action {
		case model.Buy:
			buy++
		case model.Sell:
			sell++
		}
	}

	return simulate.Result{
		AgentID:          agentID,
		InitialBalance:   opts.InitialBalance,
		FinalBalance:     state.Balance,
		FinalHoldings:    state.Holdings,
		FinalValue:       finalValue,
		TotalProfit:      totalProfit,
		ProfitPercentage: totalProfit / opts.InitialBalance * 100,
		TotalTrades:      len(state.Trades),
		BuyTrades:        buy,
		SellTrades:       sell,
		Trades:           state.Trades,
		Decisions:        state.Decisions,
	}, nil
}
