// Package simulate runs a single agent over a single ordered bar series,
// producing fills, decisions and aggregate performance. It mirrors the
// original TradingSimulator/FullPositionSimulator pair as one type
// parameterized by FillMode instead of a subclass override.
package simulate

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chidi150c/btcgrid/internal/agent"
	"github.com/chidi150c/btcgrid/internal/model"
)

// FillMode selects how much of the available balance/holdings a non-HOLD
// decision consumes.
type FillMode int

const (
	// Fractional fills 10% of balance on BUY and 10% of holdings on SELL,
	// matching the original TradingSimulator default.
	Fractional FillMode = iota
	// FullPosition fills the entire balance on BUY and the entire holding
	// on SELL, matching FullPositionSimulator (grid-search's default).
	FullPosition
)

// ErrInsufficientData is returned when fewer bars than lookback+1 are
// supplied; there is no window to evaluate the agent against.
var ErrInsufficientData = errors.New("simulate: fewer bars than the lookback window requires")

// Result is the aggregate outcome of one simulated run.
type Result struct {
	AgentID          string
	InitialBalance   float64
	FinalBalance     float64
	FinalHoldings    float64
	FinalValue       float64
	TotalProfit      float64
	ProfitPercentage float64
	TotalTrades      int
	BuyTrades        int
	SellTrades       int
	StopLossTrades   int
	Trades           []model.Order
	Decisions        []model.TradingDecision
}

// Performance adapts a Result into the original's reporting view
// (shared/models/trading.py AgentPerformance). LastUpdated is the
// timestamp of the last recorded decision, or the zero time if the
// agent never acted.
func (r Result) Performance() model.Performance {
	winRate := 0.0
	if r.SellTrades > 0 {
		winRate = float64(r.profitableSells()) / float64(r.SellTrades)
	}
	perf := model.Performance{
		AgentID:         r.AgentID,
		TotalProfit:     r.TotalProfit,
		TotalTrades:     r.TotalTrades,
		WinRate:         winRate,
		CurrentBalance:  r.FinalBalance,
		CurrentPosition: r.FinalHoldings,
	}
	if n := len(r.Decisions); n > 0 {
		perf.LastUpdated = r.Decisions[n-1].Timestamp
	}
	return perf
}

// profitableSells counts SELL orders executed at a price above the
// volume-weighted average of the preceding BUY orders. It's a simple
// running estimate, not a FIFO/LIFO lot match, sufficient for the
// win-rate summary field.
func (r Result) profitableSells() int {
	var avgBuy, boughtUnits float64
	wins := 0
	for _, o := range r.Trades {
		switch o.Action {
		case model.Buy:
			total := boughtUnits + o.Amount
			if total > 0 {
				avgBuy = (boughtUnits*avgBuy + o.Amount*o.Price) / total
			}
			boughtUnits = total
		case model.Sell:
			if avgBuy > 0 && o.Price > avgBuy {
				wins++
			}
			boughtUnits -= o.Amount
			if boughtUnits < 0 {
				boughtUnits = 0
			}
		}
	}
	return wins
}

// Options configures a Run call.
type Options struct {
	InitialBalance float64
	FeeRate        float64
	Lookback       int
	FillMode       FillMode
	StopLossPct    *float64 // nil disables the forced stop-loss check
	Logger         zerolog.Logger
}

// Run replays bars against agent starting at index Lookback, applying the
// stop-loss precheck (highest priority, per the original's ordering)
// before delegating to the agent, and logs malformed/edge conditions via
// opts.Logger rather than the default logger — pass zerolog.Nop() in
// tests.
func Run(a agent.Agent, bars []model.Bar, opts Options) (Result, error) {
	if len(bars) <= opts.Lookback {
		return Result{}, ErrInsufficientData
	}
	logger := opts.Logger

	state := model.NewSimulatorState(opts.InitialBalance)
	agentID := ""
	if id, ok := a.(interface{ ID() string }); ok {
		agentID = id.ID()
	}

	useStopLoss := opts.StopLossPct != nil
	stopLossTrades := 0

	for i := opts.Lookback; i < len(bars); i++ {
		current := bars[i]
		history := bars[i-opts.Lookback : i]

		if useStopLoss && state.EntryPrice != nil && state.Holdings > 0 {
			entry := *state.EntryPrice
			lossPct := (current.Close - entry) / entry
			if lossPct <= -*opts.StopLossPct {
				decision := model.TradingDecision{
					AgentID:    agentID,
					Timestamp:  current.Time,
					Action:     model.Sell,
					Confidence: 1.0,
					Price:      current.Close,
					Reason:     fmt.Sprintf("Stop Loss triggered: %.2f%% loss (entry: $%.2f, current: $%.2f)", lossPct*100, entry, current.Close),
				}
				units := state.Holdings
				proceeds := units * current.Close
				fee := proceeds * opts.FeeRate
				state.ApplySell(units, proceeds-fee)
				state.Trades = append(state.Trades, model.Order{
					ID:                 model.NewOrderID("sim_stoploss"),
					AgentID:            agentID,
					Action:             model.Sell,
					Amount:             units,
					Price:              current.Close,
					Timestamp:          decision.Timestamp,
					Status:             model.Executed,
					TraderID:           "simulator",
					ExecutionPrice:     ptr(current.Close),
					ExecutionTimestamp: ptr(decision.Timestamp),
				})
				state.Decisions = append(state.Decisions, decision)
				stopLossTrades++
				continue // stop-loss exit skips the ordinary decision this bar
			}
		}

		if pa, ok := a.(agent.PositionAware); ok {
			pa.UpdatePosition(state.EntryPrice, state.Holdings, current.Close)
		}

		decision := a.Decide(current, history)

		order, err := execute(state, decision, current.Close, opts.FeeRate, opts.FillMode)
		if err != nil {
			logger.Warn().Err(err).Str("agent_id", agentID).Msg("order not executed")
			state.Decisions = append(state.Decisions, decision)
			continue
		}
		if order != nil {
			state.Trades = append(state.Trades, *order)
		}
		state.Decisions = append(state.Decisions, decision)
	}

	final := bars[len(bars)-1]
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

	return Result{
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
		StopLossTrades:   stopLossTrades,
		Trades:           state.Trades,
		Decisions:        state.Decisions,
	}, nil
}

// Fill applies decision to state per fillMode and returns the resulting
// order, or nil for a HOLD decision or an unmet precondition (no
// balance/no holdings). Exported so internal/multisim can share the same
// fill accounting instead of re-deriving it.
func Fill(state *model.SimulatorState, decision model.TradingDecision, price, feeRate float64, mode FillMode) (*model.Order, error) {
	return execute(state, decision, price, feeRate, mode)
}

// execute applies decision to state per fillMode, returning nil (not an
// error) for a HOLD decision or a precondition failure (no balance/no
// holdings), matching the original execute_trade's "return None" cases.
func execute(state *model.SimulatorState, decision model.TradingDecision, price, feeRate float64, mode FillMode) (*model.Order, error) {
	switch decision.Action {
	case model.Hold:
		return nil, nil
	case model.Buy:
		return executeBuy(state, decision, price, feeRate, mode)
	case model.Sell:
		return executeSell(state, decision, price, feeRate, mode)
	default:
		return nil, nil
	}
}

func executeBuy(state *model.SimulatorState, decision model.TradingDecision, price, feeRate float64, mode FillMode) (*model.Order, error) {
	if state.Balance <= 0 {
		return nil, nil
	}
	var quoteSpent, baseBought, fee float64
	switch mode {
	case FullPosition:
		quoteSpent = state.Balance / (1 + feeRate)
		baseBought = quoteSpent / price
		fee = quoteSpent * feeRate
	default: // Fractional
		quoteSpent = state.Balance * 0.1
		fee = quoteSpent * feeRate
		if quoteSpent+fee > state.Balance {
			return nil, nil
		}
		baseBought = quoteSpent / price
	}
	state.ApplyBuy(baseBought, quoteSpent+fee, price)
	return &model.Order{
		ID:                 model.NewOrderID("sim"),
		AgentID:            decision.AgentID,
		Action:             model.Buy,
		Amount:             baseBought,
		Price:              price,
		Timestamp:          decision.Timestamp,
		Status:             model.Executed,
		TraderID:           "simulator",
		ExecutionPrice:     ptr(price),
		ExecutionTimestamp: ptr(decision.Timestamp),
	}, nil
}

func executeSell(state *model.SimulatorState, decision model.TradingDecision, price, feeRate float64, mode FillMode) (*model.Order, error) {
	if state.Holdings <= 0 {
		return nil, nil
	}
	var baseSold float64
	switch mode {
	case FullPosition:
		baseSold = state.Holdings
	default: // Fractional
		baseSold = state.Holdings * 0.1
	}
	proceeds := baseSold * price
	fee := proceeds * feeRate
	state.ApplySell(baseSold, proceeds-fee)
	return &model.Order{
		ID:                 model.NewOrderID("sim"),
		AgentID:            decision.AgentID,
		Action:             model.Sell,
		Amount:             baseSold,
		Price:              price,
		Timestamp:          decision.Timestamp,
		Status:             model.Executed,
		TraderID:           "simulator",
		ExecutionPrice:     ptr(price),
		ExecutionTimestamp: ptr(decision.Timestamp),
	}, nil
}

func ptr[T any](v T) *T { return &v }
