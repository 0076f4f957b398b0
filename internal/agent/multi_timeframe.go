package agent

import (
	"fmt"

	"github.com/chidi150c/btcgrid/internal/indicators"
	"github.com/chidi150c/btcgrid/internal/model"
)

// MultiTimeframe is the separate interface for agents that decide off two
// series at once: RSI and Bollinger Bands on the fast (replay) series,
// MACD on the slow series. It is distinct from Agent rather than a
// variadic extension of it, because the simulator that drives it needs to
// know at compile time which history it must align and pass.
type MultiTimeframe interface {
	Decide(fast model.Bar, fastHistory []model.Bar, slowHistory []model.Bar) model.TradingDecision
}

// RSIMACDMultiTimeframe combines RSI+BB evaluated on the fast series with
// MACD evaluated on the slow series (spec §4.C "Multi-timeframe agent").
//
// Open Question 2 (spec §9): the original (multi_timeframe_agent.py lines
// ~266-269) means to append the current fast bar's price to the slow
// series before computing MACD, since there is rarely a slow bar that
// lands exactly on the fast timestamp, but it appends the last slow
// bar's own close a second time instead. That duplicate-last-close
// quirk adds one extra EMA step at the latest slow close, weighting that
// close twice in the MACD and signal values (the EMA seed window is not
// affected), and is reproduced here verbatim rather than "fixed", since
// grid-search parity depends on it.
type RSIMACDMultiTimeframe struct {
	id string

	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	BBPeriod      int
	BBStdDev      float64
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
}

func NewRSIMACDMultiTimeframe(id string, rsiPeriod int, oversold, overbought float64, bbPeriod int, bbStdDev float64, macdFast, macdSlow, macdSignal int) *RSIMACDMultiTimeframe {
	return &RSIMACDMultiTimeframe{
		id: id, RSIPeriod: rsiPeriod, RSIOversold: oversold, RSIOverbought: overbought,
		BBPeriod: bbPeriod, BBStdDev: bbStdDev,
		MACDFast: macdFast, MACDSlow: macdSlow, MACDSignal: macdSignal,
	}
}

func (a *RSIMACDMultiTimeframe) ID() string { return a.id }

func (a *RSIMACDMultiTimeframe) RequiredFastMin() int {
	return max(a.RSIPeriod+1, a.BBPeriod)
}

func (a *RSIMACDMultiTimeframe) RequiredSlowMin() int {
	return a.MACDSlow + a.MACDSignal
}

func (a *RSIMACDMultiTimeframe) Decide(fast model.Bar, fastHistory []model.Bar, slowHistory []model.Bar) model.TradingDecision {
	if len(fastHistory) < a.RequiredFastMin() || len(slowHistory) < a.RequiredSlowMin() {
		return insufficientData(a.id, fast)
	}

	fastPrices := closes(fastHistory, fast)
	rsi, ok1 := indicators.RSI(fastPrices, a.RSIPeriod)
	bb, ok2 := indicators.BollingerBands(fastPrices, a.BBPeriod, a.BBStdDev)
	if !ok1 || !ok2 {
		return insufficientData(a.id, fast)
	}

	// Verbatim quirk: the last slow bar's close is appended a second time
	// instead of the current fast bar's close (see the type doc comment).
	slowPrices := make([]float64, 0, len(slowHistory)+1)
	for _, b := range slowHistory {
		slowPrices = append(slowPrices, b.Close)
	}
	slowPrices = append(slowPrices, slowHistory[len(slowHistory)-1].Close)

	macd, ok3 := indicators.MACD(slowPrices, a.MACDFast, a.MACDSlow, a.MACDSignal)
	if !ok3 {
		return insufficientData(a.id, fast)
	}

	price := fast.Close
	buy := rsi < a.RSIOversold && price <= bb.Lower && macd.Histogram > 0 && macd.MACD > macd.Signal
	sell := rsi > a.RSIOverbought && price >= bb.Upper && macd.Histogram < 0 && macd.MACD < macd.Signal

	switch {
	case buy:
		return decision(a.id, fast, model.Buy, 0.9,
			fmt.Sprintf("fast RSI=%.2f oversold, Price=%.2f <= Lower=%.2f, slow MACD hist=%.4f bullish", rsi, price, bb.Lower, macd.Histogram))
	case sell:
		return decision(a.id, fast, model.Sell, 0.9,
			fmt.Sprintf("fast RSI=%.2f overbought, Price=%.2f >= Upper=%.2f, slow MACD hist=%.4f bearish", rsi, price, bb.Upper, macd.Histogram))
	default:
		return decision(a.id, fast, model.Hold, 0.5,
			fmt.Sprintf("signals do not align across timeframes (fast RSI=%.2f, slow MACD hist=%.4f)", rsi, macd.Histogram))
	}
}
