package agent

import (
	"fmt"
	"strings"

	"github.com/chidi150c/btcgrid/internal/model"
)

// StopLoss wraps an Agent and forces a SELL once price has fallen by
// StopLossPct or more below the entry price it was told about via
// UpdatePosition. It never mutates its own state as a side effect of the
// delegated decision — only the simulator's UpdatePosition callback
// between bars does that (ma_agent_with_stoploss.py).
type StopLoss struct {
	inner       Agent
	StopLossPct float64

	state model.AgentState
}

// identified is implemented by every concrete (non-overlay) agent so
// overlays can label a forced exit with the wrapped agent's id without
// calling Decide a second time.
type identified interface {
	ID() string
}

// NewStopLoss wraps inner with a stop-loss overlay. stopLossPct is a
// fraction, e.g. 0.05 for 5%.
func NewStopLoss(inner Agent, stopLossPct float64) *StopLoss {
	return &StopLoss{inner: inner, StopLossPct: stopLossPct}
}

func (o *StopLoss) ID() string {
	if id, ok := o.inner.(identified); ok {
		return id.ID()
	}
	return ""
}

func (o *StopLoss) UpdatePosition(entryPrice *float64, holdings float64, currentPrice float64) {
	o.state.EntryPrice = entryPrice
	o.state.PositionSize = holdings
	if pa, ok := o.inner.(PositionAware); ok {
		pa.UpdatePosition(entryPrice, holdings, currentPrice)
	}
}

func (o *StopLoss) Decide(current model.Bar, history []model.Bar) model.TradingDecision {
	if o.state.EntryPrice != nil && o.state.PositionSize > 0 {
		entry := *o.state.EntryPrice
		loss := (current.Close - entry) / entry
		if loss <= -o.StopLossPct {
			return decision(o.ID(), current, model.Sell, 1.0,
				fmt.Sprintf("Stop Loss triggered: Price (%.2f) dropped %.2f%% below entry (%.2f)", current.Close, -loss*100, entry))
		}
	}
	return o.inner.Decide(current, history)
}

// TrailingStop wraps a StopLoss-wrapped agent (or any Agent) and raises
// the effective stop as price makes new highs since entry
// (ma_agent_with_trailing_stop.py). Composition order is fixed: the
// stop-loss check the inner agent performs runs first; the trailing check
// only applies once that has passed.
type TrailingStop struct {
	inner       Agent
	TrailingPct float64

	state model.AgentState
}

// NewTrailingStop wraps inner (typically a *StopLoss) with a trailing-stop
// overlay. trailingPct is a fraction, e.g. 0.03 for 3%.
func NewTrailingStop(inner Agent, trailingPct float64) *TrailingStop {
	return &TrailingStop{inner: inner, TrailingPct: trailingPct}
}

func (o *TrailingStop) ID() string {
	if id, ok := o.inner.(identified); ok {
		return id.ID()
	}
	return ""
}

func (o *TrailingStop) UpdatePosition(entryPrice *float64, holdings float64, currentPrice float64) {
	o.state.EntryPrice = entryPrice
	o.state.PositionSize = holdings
	if entryPrice == nil || holdings <= 0 {
		o.state.HighestPriceSinceEntry = nil
	} else if o.state.HighestPriceSinceEntry == nil || currentPrice > *o.state.HighestPriceSinceEntry {
		hp := currentPrice
		o.state.HighestPriceSinceEntry = &hp
	}
	if pa, ok := o.inner.(PositionAware); ok {
		pa.UpdatePosition(entryPrice, holdings, currentPrice)
	}
}

func (o *TrailingStop) Decide(current model.Bar, history []model.Bar) model.TradingDecision {
	d := o.inner.Decide(current, history)
	if d.Action == model.Sell && strings.HasPrefix(d.Reason, "Stop Loss triggered") {
		// The inner stop-loss already fired; it takes priority over the
		// trailing check. A plain sell signal from the base agent does not:
		// a triggered trailing stop replaces it below.
		return d
	}
	if o.state.EntryPrice != nil && o.state.PositionSize > 0 && o.state.HighestPriceSinceEntry != nil {
		high := *o.state.HighestPriceSinceEntry
		drop := (current.Close - high) / high
		if drop <= -o.TrailingPct {
			entry := *o.state.EntryPrice
			profitPct := (current.Close - entry) / entry * 100
			return model.TradingDecision{
				AgentID:    d.AgentID,
				Timestamp:  current.Time,
				Action:     model.Sell,
				Confidence: 1.0,
				Price:      current.Close,
				Reason: fmt.Sprintf("Trailing Stop triggered: Price (%.2f) dropped %.2f%% below peak (%.2f), entry (%.2f), realised profit %.2f%%",
					current.Close, -drop*100, high, entry, profitPct),
			}
		}
	}
	return d
}
