package multisim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chidi150c/btcgrid/internal/agent"
	"github.com/chidi150c/btcgrid/internal/model"
)

func fastBars(n int) []model.Bar {
	out := make([]model.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 0.5
		out[i] = model.Bar{Time: base.Add(time.Duration(i) * 15 * time.Minute), Close: price}
	}
	return out
}

func slowBars(n int) []model.Bar {
	out := make([]model.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 1
		out[i] = model.Bar{Time: base.Add(time.Duration(i) * time.Hour), Close: price}
	}
	return out
}

func TestAlignTimeframesUpperBound(t *testing.T) {
	fast := fastBars(8) // 0, 15m, 30m, 45m, 1h, 1h15, 1h30, 1h45
	slow := slowBars(2) // 0, 1h

	aligned, slowSorted := AlignTimeframes(fast, slow)
	require.Len(t, slowSorted, 2)

	// Fast bar at t=0 aligns with exactly one slow bar (t=0): bisect_right
	// of a timestamp equal to a slow timestamp includes that slow bar.
	require.NotEmpty(t, aligned)
	assert.Equal(t, 1, aligned[0].SlowPrefixLen)

	// Fast bar at t=45m still only sees the slow bar at t=0 (slow bar at
	// t=1h lies strictly after it).
	for _, row := range aligned {
		if row.Fast.Time.Equal(fast[3].Time) {
			assert.Equal(t, 1, row.SlowPrefixLen)
		}
	}

	// Fast bar at t=1h now also sees the slow bar at t=1h.
	for _, row := range aligned {
		if row.Fast.Time.Equal(fast[4].Time) {
			assert.Equal(t, 2, row.SlowPrefixLen)
		}
	}
}

func TestAlignTimeframesDropsRowsBeforeFirstSlowBar(t *testing.T) {
	fast := []model.Bar{{Time: time.Unix(0, 0)}}
	slow := []model.Bar{{Time: time.Unix(100, 0)}}
	aligned, _ := AlignTimeframes(fast, slow)
	assert.Empty(t, aligned)
}

func TestRunInsufficientData(t *testing.T) {
	a := agent.NewRSIMACDMultiTimeframe("mtf", 14, 30, 70, 20, 2.0, 12, 26, 9)
	aligned, slowSorted := AlignTimeframes(fastBars(5), slowBars(5))
	_, err := Run(a, aligned, slowSorted, Options{InitialBalance: 1000, FastLookback: 100})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRunLogsOneDecisionPerAlignedRow(t *testing.T) {
	a := agent.NewRSIMACDMultiTimeframe("mtf", 5, 30, 70, 10, 2.0, 3, 6, 3)
	aligned, slowSorted := AlignTimeframes(fastBars(120), slowBars(40))
	res, err := Run(a, aligned, slowSorted, Options{
		InitialBalance: 10000,
		FeeRate:        0.001,
		FastLookback:   20,
		SlowLookback:   15,
	})
	require.NoError(t, err)
	assert.Len(t, res.Decisions, len(aligned)-20)
}

func TestRunProducesConsistentFinalValue(t *testing.T) {
	a := agent.NewRSIMACDMultiTimeframe("mtf", 5, 30, 70, 10, 2.0, 3, 6, 3)
	aligned, slowSorted := AlignTimeframes(fastBars(120), slowBars(40))
	res, err := Run(a, aligned, slowSorted, Options{
		InitialBalance: 10000,
		FeeRate:        0.001,
		FastLookback:   20,
		SlowLookback:   15,
	})
	require.NoError(t, err)
	assert.InDelta(t, res.FinalBalance+res.FinalHoldings*aligned[len(aligned)-1].Fast.Close, res.FinalValue, 1e-6)
}
