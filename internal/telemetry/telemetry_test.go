package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.TuplesEvaluated.Inc()
	m.TuplesEvaluated.Inc()
	m.TuplesFiltered.Inc()
	m.SetBestProfit(7.84)
	m.DecisionsTotal.WithLabelValues("buy").Inc()
	m.TradesTotal.WithLabelValues("sell").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.TuplesEvaluated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TuplesFiltered))
	assert.Equal(t, 7.84, testutil.ToFloat64(m.BestProfitPct))
}

func TestSetBestProfitToleratesNilMetrics(t *testing.T) {
	var m *Metrics
	m.SetBestProfit(10)
}
