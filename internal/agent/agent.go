// Package agent implements the stateful strategy objects that map a bar
// and its history to a trading decision: moving-average crossover, RSI+BB,
// MACD+BB, RSI+MACD+BB, a multi-timeframe combination, and the stop-loss /
// trailing-stop overlays that wrap any of them.
package agent

import (
	"fmt"

	"github.com/chidi150c/btcgrid/internal/indicators"
	"github.com/chidi150c/btcgrid/internal/model"
)

// Agent maps the current bar and its preceding history to a decision.
// Implementations must never read any bar at or after the current
// timestamp other than the one passed as the current bar, and must be
// total: every call returns a decision, never an error.
type Agent interface {
	Decide(current model.Bar, history []model.Bar) model.TradingDecision
}

// PositionAware is an optional capability an Agent may implement to
// receive the simulator's authoritative position snapshot between bars.
// Design note (spec §9): an explicit interface with a single method and
// no runtime probing, so full-position accounting and overlay state
// cannot drift apart. Agents that don't need it simply don't implement
// it; the simulator type-asserts for it rather than calling it
// unconditionally.
type PositionAware interface {
	UpdatePosition(entryPrice *float64, holdings float64, currentPrice float64)
}

func closes(history []model.Bar, current model.Bar) []float64 {
	out := make([]float64, 0, len(history)+1)
	for _, b := range history {
		out = append(out, b.Close)
	}
	return append(out, current.Close)
}

func insufficientData(agentID string, ts model.Bar) model.TradingDecision {
	return model.TradingDecision{
		AgentID:    agentID,
		Timestamp:  ts.Time,
		Action:     model.Hold,
		Confidence: 0.5,
		Price:      ts.Close,
		Reason:     "Insufficient historical data",
	}
}

// MACross is the moving-average crossover agent (spec §4.C). The window
// for both averages is `history ∪ {current_bar}` — the convention spec
// §4.C names as intended, resolving the original's short/bare-history
// inconsistency (spec §9 Open Question 3).
type MACross struct {
	id    string
	Short int
	Long  int
}

// NewMACross constructs a MA-cross agent. Short must be less than Long.
func NewMACross(id string, short, long int) *MACross {
	return &MACross{id: id, Short: short, Long: long}
}

func (a *MACross) ID() string       { return a.id }
func (a *MACross) RequiredMin() int { return a.Long }

func (a *MACross) Decide(current model.Bar, history []model.Bar) model.TradingDecision {
	if len(history) < a.RequiredMin() {
		return insufficientData(a.id, current)
	}
	prices := closes(history, current)
	longMA, ok := indicators.SMA(prices, a.Long)
	if !ok {
		return insufficientData(a.id, current)
	}
	shortMA, ok := indicators.SMA(prices, a.Short)
	if !ok {
		return insufficientData(a.id, current)
	}

	action := model.Hold
	confidence := 0.5
	reason := fmt.Sprintf("Short MA (%.2f) == Long MA (%.2f)", shortMA, longMA)
	switch {
	case shortMA > longMA:
		action = model.Buy
		confidence = confidenceFromSpread(shortMA, longMA, longMA)
		reason = fmt.Sprintf("Short MA (%.2f) > Long MA (%.2f)", shortMA, longMA)
	case shortMA < longMA:
		action = model.Sell
		confidence = confidenceFromSpread(longMA, shortMA, longMA)
		reason = fmt.Sprintf("Short MA (%.2f) < Long MA (%.2f)", shortMA, longMA)
	}

	return model.TradingDecision{
		AgentID:    a.id,
		Timestamp:  current.Time,
		Action:     action,
		Confidence: confidence,
		Price:      current.Close,
		Reason:     reason,
	}
}

func confidenceFromSpread(a, b, denom float64) float64 {
	if denom == 0 {
		return 0.9
	}
	c := 0.5 + (a-b)/denom
	if c > 0.9 {
		return 0.9
	}
	return c
}

// RSIBollinger requires RSI and Bollinger Bands to agree before taking a
// position (spec §4.C "RSI+BB agent").
type RSIBollinger struct {
	id string

	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	BBPeriod      int
	BBStdDev      float64
}

func NewRSIBollinger(id string, rsiPeriod int, oversold, overbought float64, bbPeriod int, bbStdDev float64) *RSIBollinger {
	return &RSIBollinger{id: id, RSIPeriod: rsiPeriod, RSIOversold: oversold, RSIOverbought: overbought, BBPeriod: bbPeriod, BBStdDev: bbStdDev}
}

func (a *RSIBollinger) ID() string { return a.id }

func (a *RSIBollinger) RequiredMin() int {
	return max(a.RSIPeriod+1, a.BBPeriod)
}

func (a *RSIBollinger) Decide(current model.Bar, history []model.Bar) model.TradingDecision {
	if len(history) < a.RequiredMin() {
		return insufficientData(a.id, current)
	}
	prices := closes(history, current)
	rsi, ok1 := indicators.RSI(prices, a.RSIPeriod)
	bb, ok2 := indicators.BollingerBands(prices, a.BBPeriod, a.BBStdDev)
	if !ok1 || !ok2 {
		return insufficientData(a.id, current)
	}

	price := current.Close
	rsiBuy := rsi < a.RSIOversold
	rsiSell := rsi > a.RSIOverbought
	bbBuy := price <= bb.Lower
	bbSell := price >= bb.Upper

	switch {
	case rsiBuy && bbBuy:
		return decision(a.id, current, model.Buy, 0.9,
			fmt.Sprintf("RSI oversold (%.2f < %.2f) AND BB buy signal (Price=%.2f <= Lower=%.2f)", rsi, a.RSIOversold, price, bb.Lower))
	case rsiSell && bbSell:
		return decision(a.id, current, model.Sell, 0.9,
			fmt.Sprintf("RSI overbought (%.2f > %.2f) AND BB sell signal (Price=%.2f >= Upper=%.2f)", rsi, a.RSIOverbought, price, bb.Upper))
	default:
		return decision(a.id, current, model.Hold, 0.5,
			fmt.Sprintf("signals do not align (RSI=%.2f, Price=%.2f between %.2f-%.2f)", rsi, price, bb.Lower, bb.Upper))
	}
}

// MACDBollinger requires MACD and Bollinger Bands to agree (spec §4.C
// "MACD+BB agent").
type MACDBollinger struct {
	id string

	MACDFast   int
	MACDSlow   int
	MACDSignal int
	BBPeriod   int
	BBStdDev   float64
}

func NewMACDBollinger(id string, fast, slow, signal, bbPeriod int, bbStdDev float64) *MACDBollinger {
	return &MACDBollinger{id: id, MACDFast: fast, MACDSlow: slow, MACDSignal: signal, BBPeriod: bbPeriod, BBStdDev: bbStdDev}
}

func (a *MACDBollinger) ID() string { return a.id }

func (a *MACDBollinger) RequiredMin() int {
	return max(a.MACDSlow+a.MACDSignal, a.BBPeriod)
}

func (a *MACDBollinger) Decide(current model.Bar, history []model.Bar) model.TradingDecision {
	if len(history) < a.RequiredMin() {
		return insufficientData(a.id, current)
	}
	prices := closes(history, current)
	macd, ok1 := indicators.MACD(prices, a.MACDFast, a.MACDSlow, a.MACDSignal)
	bb, ok2 := indicators.BollingerBands(prices, a.BBPeriod, a.BBStdDev)
	if !ok1 || !ok2 {
		return insufficientData(a.id, current)
	}

	price := current.Close
	buy := macd.Histogram > 0 && macd.MACD > macd.Signal && price <= bb.Lower
	sell := macd.Histogram < 0 && macd.MACD < macd.Signal && price >= bb.Upper

	switch {
	case buy:
		return decision(a.id, current, model.Buy, 0.9,
			fmt.Sprintf("MACD bullish (hist=%.4f, macd=%.4f > signal=%.4f) AND Price=%.2f <= Lower=%.2f", macd.Histogram, macd.MACD, macd.Signal, price, bb.Lower))
	case sell:
		return decision(a.id, current, model.Sell, 0.9,
			fmt.Sprintf("MACD bearish (hist=%.4f, macd=%.4f < signal=%.4f) AND Price=%.2f >= Upper=%.2f", macd.Histogram, macd.MACD, macd.Signal, price, bb.Upper))
	default:
		return decision(a.id, current, model.Hold, 0.5,
			fmt.Sprintf("signals do not align (hist=%.4f, Price=%.2f between %.2f-%.2f)", macd.Histogram, price, bb.Lower, bb.Upper))
	}
}

// RSIMACDBollinger is the three-way conjunction and the dominant
// grid-search target (spec §4.C).
type RSIMACDBollinger struct {
	id string

	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	BBPeriod      int
	BBStdDev      float64
}

func NewRSIMACDBollinger(id string, rsiPeriod int, oversold, overbought float64, macdFast, macdSlow, macdSignal, bbPeriod int, bbStdDev float64) *RSIMACDBollinger {
	return &RSIMACDBollinger{
		id: id, RSIPeriod: rsiPeriod, RSIOversold: oversold, RSIOverbought: overbought,
		MACDFast: macdFast, MACDSlow: macdSlow, MACDSignal: macdSignal,
		BBPeriod: bbPeriod, BBStdDev: bbStdDev,
	}
}

func (a *RSIMACDBollinger) ID() string { return a.id }

func (a *RSIMACDBollinger) RequiredMin() int {
	return max(a.RSIPeriod+1, a.MACDSlow+a.MACDSignal, a.BBPeriod)
}

func (a *RSIMACDBollinger) Decide(current model.Bar, history []model.Bar) model.TradingDecision {
	if len(history) < a.RequiredMin() {
		return insufficientData(a.id, current)
	}
	prices := closes(history, current)
	rsi, ok1 := indicators.RSI(prices, a.RSIPeriod)
	macd, ok2 := indicators.MACD(prices, a.MACDFast, a.MACDSlow, a.MACDSignal)
	bb, ok3 := indicators.BollingerBands(prices, a.BBPeriod, a.BBStdDev)
	if !ok1 || !ok2 || !ok3 {
		return insufficientData(a.id, current)
	}

	price := current.Close
	buy := rsi < a.RSIOversold && macd.Histogram > 0 && macd.MACD > macd.Signal && price <= bb.Lower
	sell := rsi > a.RSIOverbought && macd.Histogram < 0 && macd.MACD < macd.Signal && price >= bb.Upper

	switch {
	case buy:
		return decision(a.id, current, model.Buy, 0.9,
			fmt.Sprintf("RSI=%.2f oversold, MACD bullish (hist=%.4f), Price=%.2f <= Lower=%.2f", rsi, macd.Histogram, price, bb.Lower))
	case sell:
		return decision(a.id, current, model.Sell, 0.9,
			fmt.Sprintf("RSI=%.2f overbought, MACD bearish (hist=%.4f), Price=%.2f >= Upper=%.2f", rsi, macd.Histogram, price, bb.Upper))
	default:
		return decision(a.id, current, model.Hold, 0.5,
			fmt.Sprintf("signals do not align (RSI=%.2f, hist=%.4f, Price=%.2f)", rsi, macd.Histogram, price))
	}
}

func decision(agentID string, bar model.Bar, action model.Action, confidence float64, reason string) model.TradingDecision {
	return model.TradingDecision{
		AgentID:    agentID,
		Timestamp:  bar.Time,
		Action:     action,
		Confidence: confidence,
		Price:      bar.Close,
		Reason:     reason,
	}
}

func max(vs ...int) int {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
