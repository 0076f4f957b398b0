// Package model holds the immutable value types shared by every layer of
// the backtesting engine: bars, decisions, simulated orders and the
// mutable-but-centralized state the simulator folds over.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Bar is a single time-indexed price observation. It is produced by the
// CSV loader and never mutated after construction.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Action is the trading intent a decision carries.
type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

// String implements fmt.Stringer for logging and JSON-free debug output.
func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// MarshalJSON encodes the action by name, matching the original's enum-by-value contract.
func (a Action) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes the action by name.
func (a *Action) UnmarshalJSON(data []byte) error {
	s := trimQuotes(string(data))
	switch s {
	case "BUY":
		*a = Buy
	case "SELL":
		*a = Sell
	default:
		*a = Hold
	}
	return nil
}

// OrderStatus is the lifecycle state of a simulated order.
type OrderStatus int

const (
	Pending OrderStatus = iota
	Executed
	Failed
	Cancelled
)

func (s OrderStatus) String() string {
	switch s {
	case Executed:
		return "EXECUTED"
	case Failed:
		return "FAILED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "PENDING"
	}
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	switch trimQuotes(string(data)) {
	case "EXECUTED":
		*s = Executed
	case "FAILED":
		*s = Failed
	case "CANCELLED":
		*s = Cancelled
	default:
		*s = Pending
	}
	return nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// TradingDecision is what an agent produces at every bar. Agents are
// total: every call to Decide returns one of these, never an error.
type TradingDecision struct {
	AgentID         string    `json:"agent_id"`
	Timestamp       time.Time `json:"timestamp"`
	Action          Action    `json:"action"`
	Confidence      float64   `json:"confidence"`
	Price           float64   `json:"price"`
	Reason          string    `json:"reason"`
	ModelPrediction *float64  `json:"model_prediction,omitempty"`
}

// NewOrderID returns a unique order identifier prefixed with the
// simulator component that produced it (e.g. "sim" or "sim_stoploss"),
// replacing the original's wall-clock-timestamp id with one that carries
// no ordering assumption.
func NewOrderID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Order is the record of a fill (or rejection) the simulator produces for
// a non-HOLD decision that passes its preconditions.
type Order struct {
	ID                 string      `json:"order_id"`
	AgentID            string      `json:"agent_id"`
	Action             Action      `json:"action"`
	Amount             float64     `json:"amount"`
	Price              float64     `json:"price"`
	Timestamp          time.Time   `json:"timestamp"`
	Status             OrderStatus `json:"status"`
	TraderID           string      `json:"trader_id"`
	ExecutionPrice     *float64    `json:"execution_price,omitempty"`
	ExecutionTimestamp *time.Time  `json:"execution_timestamp,omitempty"`
	ErrorMessage       string      `json:"error_message,omitempty"`
}

// SimulatorState is the mutable cash/position ledger the simulator folds
// over one bar at a time. It centralizes the size-weighted entry-price
// update so every fill mode and every overlay reads the same number
// instead of keeping a derived copy that can drift.
type SimulatorState struct {
	Balance    float64
	Holdings   float64
	EntryPrice *float64

	Trades    []Order
	Decisions []TradingDecision
}

// NewSimulatorState returns a freshly reset ledger with the given starting cash.
func NewSimulatorState(initialBalance float64) *SimulatorState {
	return &SimulatorState{Balance: initialBalance}
}

// ApplyBuy credits holdings and debits balance, updating EntryPrice as the
// size-weighted average of the prior position and the new fill. It is the
// single place this computation happens, so every fill mode and every
// overlay reads the same number instead of a derived copy that can drift.
func (s *SimulatorState) ApplyBuy(baseBought, quoteSpent, fillPrice float64) {
	oldHoldings := s.Holdings
	var oldEntry float64
	if s.EntryPrice != nil {
		oldEntry = *s.EntryPrice
	} else {
		oldEntry = fillPrice
	}
	s.Balance -= quoteSpent
	s.Holdings += baseBought
	var newEntry float64
	if s.Holdings > 0 {
		newEntry = (oldHoldings*oldEntry + baseBought*fillPrice) / s.Holdings
	} else {
		newEntry = fillPrice
	}
	s.EntryPrice = &newEntry
}

// ApplySell debits holdings and credits balance. When holdings reach zero
// EntryPrice is cleared, preserving the §3 invariant
// `entry_price is None ⇔ holdings == 0`.
func (s *SimulatorState) ApplySell(baseSold, quoteIn float64) {
	s.Holdings -= baseSold
	s.Balance += quoteIn
	if s.Holdings <= 0 {
		s.Holdings = 0
		s.EntryPrice = nil
	}
}

// AgentState is the position bookkeeping an overlay (stop-loss, trailing
// stop) carries independently of the simulator's own ledger.
type AgentState struct {
	EntryPrice             *float64
	PositionSize           float64
	HighestPriceSinceEntry *float64
}

// IsFlat reports whether the overlay believes it holds no position.
func (s AgentState) IsFlat() bool {
	return s.EntryPrice == nil && s.PositionSize == 0
}

// AlignedRow pairs a fast-timeframe bar with the length of the causal
// prefix into the sorted slow-timeframe series.
type AlignedRow struct {
	Fast          Bar
	SlowPrefixLen int
}

// Performance is a derived snapshot of an agent's run-to-date results,
// matching the original implementation's AgentPerformance record
// (original_source/shared/models/trading.py). Not consumed by the core
// replay loop; it is a reporting view over a completed Result.
type Performance struct {
	AgentID         string    `json:"agent_id"`
	TotalProfit     float64   `json:"total_profit"`
	TotalTrades     int       `json:"total_trades"`
	WinRate         float64   `json:"win_rate"`
	LastUpdated     time.Time `json:"last_updated"`
	CurrentBalance  float64   `json:"current_balance"`
	CurrentPosition float64   `json:"current_position"`
}
