// Package indicators implements the stateless technical-indicator kernels
// used by the agent family: SMA, EMA, RSI, MACD and Bollinger Bands.
//
// Every kernel takes an ordered sequence of closes ending at "now" and
// returns a sentinel zero value (or ok=false) when the sequence is
// shorter than the minimum required — they never panic or return NaN for
// well-formed input, matching the spec's "no NaN on correct input" rule.
package indicators

import "math"

// SMA returns the arithmetic mean of the last period values of prices.
// ok is false when len(prices) < period.
func SMA(prices []float64, period int) (value float64, ok bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period), true
}

// EMA returns the full exponential moving average series for prices,
// aligned so that EMA()[0] corresponds to prices[period-1]. The seed
// value is the SMA of the first period prices; thereafter
// ema_t = alpha*price_t + (1-alpha)*ema_{t-1} with alpha = 2/(period+1).
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, 0, len(prices)-period+1)
	seed := 0.0
	for _, p := range prices[:period] {
		seed += p
	}
	seed /= float64(period)
	out = append(out, seed)
	prev := seed
	for _, p := range prices[period:] {
		v := alpha*p + (1-alpha)*prev
		out = append(out, v)
		prev = v
	}
	return out
}

// RSI computes the seed-window (non-Wilder) Relative Strength Index over
// the last `period` deltas of prices. This is a deliberate simplification
// documented in spec.md §9 Open Question 1: it reseeds the average
// gain/loss from scratch on every call instead of Wilder's recursive
// smoothing, and must match exactly for test parity with the original.
// ok is false when len(prices) < period+1.
func RSI(prices []float64, period int) (value float64, ok bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}
	window := prices[len(prices)-period-1:]
	var gain, loss float64
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		if d > 0 {
			gain += d
		} else {
			loss += -d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// MACDResult is the last aligned sample of the MACD line, its signal line
// and their difference (the histogram).
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the MACD line (fastEMA - slowEMA), its signal line
// (EMA of the MACD line) and histogram, evaluated on the most recent
// aligned sample only. ok is false when len(prices) < slow+signal.
func MACD(prices []float64, fast, slow, signal int) (MACDResult, bool) {
	if len(prices) < slow+signal {
		return MACDResult{}, false
	}
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)
	if fastEMA == nil || slowEMA == nil {
		return MACDResult{}, false
	}
	// fastEMA is longer (starts earlier); align so macdLine[i] corresponds
	// to slowEMA[i].
	offset := len(fastEMA) - len(slowEMA)
	if offset < 0 {
		return MACDResult{}, false
	}
	macdLine := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macdLine[i] = fastEMA[offset+i] - slowEMA[i]
	}
	if len(macdLine) < signal {
		return MACDResult{}, false
	}
	signalLine := EMA(macdLine, signal)
	if signalLine == nil {
		return MACDResult{}, false
	}
	lastMACD := macdLine[len(macdLine)-1]
	lastSignal := signalLine[len(signalLine)-1]
	return MACDResult{
		MACD:      lastMACD,
		Signal:    lastSignal,
		Histogram: lastMACD - lastSignal,
	}, true
}

// BollingerBandsResult is the middle/upper/lower band and bandwidth at
// the end of the evaluated window.
type BollingerBandsResult struct {
	Middle    float64
	Upper     float64
	Lower     float64
	Bandwidth float64
}

// BollingerBands computes the middle (SMA), population-variance-derived
// bands and bandwidth over the last period prices. ok is false when
// len(prices) < period.
func BollingerBands(prices []float64, period int, k float64) (BollingerBandsResult, bool) {
	middle, ok := SMA(prices, period)
	if !ok {
		return BollingerBandsResult{}, false
	}
	window := prices[len(prices)-period:]
	var variance float64
	for _, p := range window {
		d := p - middle
		variance += d * d
	}
	variance /= float64(period)
	std := math.Sqrt(variance)
	upper := middle + k*std
	lower := middle - k*std
	bandwidth := 0.0
	if middle > 0 {
		bandwidth = (upper - lower) / middle
	}
	return BollingerBandsResult{Middle: middle, Upper: upper, Lower: lower, Bandwidth: bandwidth}, true
}
