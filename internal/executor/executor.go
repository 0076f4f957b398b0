// Package executor defines the agent-facing order executor boundary and
// a deterministic in-memory implementation of it. Backtests never talk
// to a real exchange; this mirrors the teacher's PaperBroker (a single
// mutable price, no external calls) but speaks in this engine's Action/
// Order vocabulary instead of OrderSide/PlacedOrder.
package executor

import (
	"fmt"
	"sync"

	"github.com/chidi150c/btcgrid/internal/clock"
	"github.com/chidi150c/btcgrid/internal/model"
)

// Executor is the collaborator boundary an agent (or the simulator on an
// agent's behalf) uses to turn a decision into a fill. A nil price means
// market order; errors are carried in the returned Order's ErrorMessage
// with Status Failed, never as a Go error, so a bad order never unwinds
// the simulator loop.
type Executor interface {
	Execute(action model.Action, amount float64, price *float64) model.Order
}

// InMemory fills every order immediately at the last price it was told
// about, crediting/debiting nothing — it exists to let standalone agents
// exercise the Executor boundary without depending on simulate's ledger.
// The replay loop in simulate/multisim does its own balance accounting
// and does not use this type.
type InMemory struct {
	mu      sync.Mutex
	price   float64
	agentID string
	clock   clock.Clock
}

// NewInMemory returns an InMemory executor reporting fills under agentID,
// using c to stamp order timestamps (clock.System{} in production,
// clock.Fixed in tests).
func NewInMemory(agentID string, c clock.Clock) *InMemory {
	return &InMemory{agentID: agentID, clock: c}
}

// SetPrice updates the price market orders fill at.
func (e *InMemory) SetPrice(price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.price = price
}

// Execute fills amount of action at price (or the last price set via
// SetPrice, for a market order) and returns the resulting Order.
func (e *InMemory) Execute(action model.Action, amount float64, price *float64) model.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	order := model.Order{
		ID:        model.NewOrderID("exec"),
		AgentID:   e.agentID,
		Action:    action,
		Amount:    amount,
		Timestamp: now,
		TraderID:  e.agentID,
	}

	if amount <= 0 {
		order.Status = model.Failed
		order.ErrorMessage = fmt.Sprintf("amount must be > 0, got %.8f", amount)
		return order
	}

	fillPrice := e.price
	if price != nil {
		fillPrice = *price
	}
	if fillPrice <= 0 {
		order.Status = model.Failed
		order.ErrorMessage = "no price available for market order"
		return order
	}

	order.Price = fillPrice
	order.Status = model.Executed
	order.ExecutionPrice = &fillPrice
	order.ExecutionTimestamp = &now
	return order
}
