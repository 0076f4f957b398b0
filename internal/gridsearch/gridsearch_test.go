package gridsearch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chidi150c/btcgrid/internal/model"
	"github.com/chidi150c/btcgrid/internal/resultio"
)

func risingBars(n int) []model.Bar {
	out := make([]model.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 1
		out[i] = model.Bar{Time: base.Add(time.Duration(i) * time.Hour), Close: price}
	}
	return out
}

func TestEnumerateMACrossAppliesStrictRatioFilter(t *testing.T) {
	// Spec §8 Scenario 5: short in {5,10}, long in {5,15}, min_ratio=1.5.
	// (5,5) and (10,5) fail short<long; (10,15) has ratio exactly 1.5 and
	// is rejected by the strict ">" comparison; only (5,15) survives.
	tuples := EnumerateMACross(MACrossAxes{Shorts: []int{5, 10}, Longs: []int{5, 15}, MinRatio: 1.5})
	require.Len(t, tuples, 1)
	assert.Equal(t, MACrossTuple{Short: 5, Long: 15}, tuples[0])
}

func TestEnumerateRSIMACDBBFiltersInvalidMACD(t *testing.T) {
	tuples := EnumerateRSIMACDBB(RSIMACDBBAxes{
		RSIPeriods:     []int{14},
		RSIOversolds:   []float64{30},
		RSIOverboughts: []float64{70},
		MACDFasts:      []int{26, 12},
		MACDSlows:      []int{26},
		MACDSignals:    []int{9},
		BBPeriods:      []int{20},
		BBStdDevs:      []float64{2.0},
		MinLookback:    100,
	}, 1000)
	require.Len(t, tuples, 1)
	assert.Equal(t, 12, tuples[0].MACDFast)
}

func TestEnumerateRSIMACDBBDropsTuplesExceedingDataLen(t *testing.T) {
	tuples := EnumerateRSIMACDBB(RSIMACDBBAxes{
		RSIPeriods:     []int{14},
		RSIOversolds:   []float64{30},
		RSIOverboughts: []float64{70},
		MACDFasts:      []int{12},
		MACDSlows:      []int{26},
		MACDSignals:    []int{9},
		BBPeriods:      []int{20},
		BBStdDevs:      []float64{2.0},
		MinLookback:    100,
	}, 50)
	assert.Empty(t, tuples)
}

func TestTupleAgentIDIsStableAndReadable(t *testing.T) {
	sl := 0.05
	tuple := RSIMACDBBTuple{RSIPeriod: 14, RSIOversold: 30, RSIOverbought: 70, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, BBPeriod: 20, BBStdDev: 2.0, StopLossPct: &sl}
	id := tuple.AgentID()
	assert.Equal(t, "rsi_macd_bb_r14_os30_ob70_f12_s26_sig9_bbp20_bbstd2.0_sl5pct_nots", id)
}

func TestSearchMACrossRanksByProfitDescending(t *testing.T) {
	bars := risingBars(60)
	tuples := []MACrossTuple{{Short: 2, Long: 5}, {Short: 2, Long: 10}}
	summary, err := SearchMACross(context.Background(), bars, tuples, Options{InitialBalance: 10000, FeeRate: 0})
	require.NoError(t, err)
	require.Len(t, summary.AllResults, 2)
	require.NotNil(t, summary.Best)
	for i := 1; i < len(summary.AllResults); i++ {
		assert.GreaterOrEqual(t, summary.AllResults[i-1].ProfitPercentage, summary.AllResults[i].ProfitPercentage)
	}
}

func TestTuplesFromExperimentPlanTagsExperimentNumber(t *testing.T) {
	plan := resultio.ExperimentPlan{Experiments: []resultio.Experiment{
		{ExperimentNumber: 3, RSIPeriod: 14, RSIOversold: 30, RSIOverbought: 70, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, BBPeriod: 20, BBStdDev: 2.0, StopLoss: 0.05},
	}}
	tuples := TuplesFromExperimentPlan(plan, 100)
	require.Len(t, tuples, 1)
	require.NotNil(t, tuples[0].ExperimentNumber)
	assert.Equal(t, 3, *tuples[0].ExperimentNumber)
	require.NotNil(t, tuples[0].StopLossPct)
	assert.Equal(t, 0.05, *tuples[0].StopLossPct)
	assert.Contains(t, tuples[0].AgentID(), "l18_exp3_")
}

func TestSearchSkipsInsufficientDataTuplesWithoutAborting(t *testing.T) {
	bars := risingBars(10)
	tuples := []MACrossTuple{{Short: 2, Long: 5}, {Short: 2, Long: 50}}
	summary, err := SearchMACross(context.Background(), bars, tuples, Options{InitialBalance: 10000, FeeRate: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalTested)
	assert.Equal(t, 1, summary.TotalFiltered)
}
