package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMAInsufficientData(t *testing.T) {
	_, ok := SMA([]float64{1, 2}, 5)
	assert.False(t, ok)
}

func TestSMA(t *testing.T) {
	v, ok := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9)
}

func TestEMASeedsWithSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6}
	out := EMA(prices, 3)
	require.Len(t, out, 4)
	assert.InDelta(t, 2.0, out[0], 1e-9) // SMA(1,2,3)
	alpha := 2.0 / 4.0
	expected := alpha*4 + (1-alpha)*2.0
	assert.InDelta(t, expected, out[1], 1e-9)
}

func TestEMAInsufficientData(t *testing.T) {
	assert.Nil(t, EMA([]float64{1, 2}, 5))
}

func TestRSIAllGains(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	v, ok := RSI(prices, 14)
	require.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9)
}

func TestRSIFlatSeriesHasZeroLoss(t *testing.T) {
	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = 100
	}
	v, ok := RSI(prices, 14)
	require.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9)
}

func TestRSIInsufficientData(t *testing.T) {
	_, ok := RSI([]float64{1, 2, 3}, 14)
	assert.False(t, ok)
}

func TestMACDInsufficientData(t *testing.T) {
	_, ok := MACD([]float64{1, 2, 3}, 12, 26, 9)
	assert.False(t, ok)
}

func TestMACDComputes(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	res, ok := MACD(prices, 5, 10, 3)
	require.True(t, ok)
	assert.InDelta(t, res.MACD-res.Signal, res.Histogram, 1e-9)
}

func TestBollingerBandsConstantSeries(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 50
	}
	res, ok := BollingerBands(prices, 20, 2.0)
	require.True(t, ok)
	assert.InDelta(t, 50.0, res.Middle, 1e-9)
	assert.InDelta(t, 50.0, res.Upper, 1e-9)
	assert.InDelta(t, 50.0, res.Lower, 1e-9)
	assert.InDelta(t, 0.0, res.Bandwidth, 1e-9)
}

func TestBollingerBandsInsufficientData(t *testing.T) {
	_, ok := BollingerBands([]float64{1, 2}, 20, 2.0)
	assert.False(t, ok)
}
