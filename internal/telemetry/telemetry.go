// Package telemetry exposes Prometheus metrics for the grid-search
// driver: how many tuples have been evaluated and filtered, the best
// profit percentage seen so far, and how long each tuple's simulation
// took. Metrics live on a *Metrics value built with New, not package
// globals, so concurrent searches (and tests) don't collide on a shared
// default registry the way the teacher's init()-registered globals do.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the grid-search driver's Prometheus collectors.
type Metrics struct {
	TuplesEvaluated prometheus.Counter
	TuplesFiltered  prometheus.Counter
	BestProfitPct   prometheus.Gauge
	TupleDuration   prometheus.Histogram
	DecisionsTotal  *prometheus.CounterVec
	TradesTotal     *prometheus.CounterVec
}

// New builds a Metrics bound to reg. Pass prometheus.NewRegistry() for
// an isolated registry (tests, multiple searches in one process) or
// prometheus.DefaultRegisterer to serve from the process-wide /metrics
// endpoint.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TuplesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "btcgrid_tuples_evaluated_total",
			Help: "Parameter tuples that completed a simulation run.",
		}),
		TuplesFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "btcgrid_tuples_filtered_total",
			Help: "Parameter tuples dropped before or during simulation (invalid config or insufficient history).",
		}),
		BestProfitPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "btcgrid_best_profit_percentage",
			Help: "Highest profit percentage observed so far in the current search.",
		}),
		TupleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "btcgrid_tuple_duration_seconds",
			Help:    "Wall-clock time to simulate a single parameter tuple.",
			Buckets: prometheus.DefBuckets,
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btcgrid_decisions_total",
			Help: "Trading decisions emitted by agents during simulation, by action.",
		}, []string{"action"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btcgrid_trades_total",
			Help: "Fills executed during simulation, by side.",
		}, []string{"side"}),
	}
	reg.MustRegister(m.TuplesEvaluated, m.TuplesFiltered, m.BestProfitPct, m.TupleDuration, m.DecisionsTotal, m.TradesTotal)
	return m
}

// SetBestProfit publishes the current best profit percentage. The caller
// decides which result is best (cmd/gridsearch passes the top-ranked
// result of the Summary that gridsearch.Search returns); this just
// mirrors that value into the gauge.
func (m *Metrics) SetBestProfit(profitPct float64) {
	if m == nil {
		return
	}
	m.BestProfitPct.Set(profitPct)
}
