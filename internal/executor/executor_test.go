package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chidi150c/btcgrid/internal/clock"
	"github.com/chidi150c/btcgrid/internal/model"
)

func TestExecuteMarketOrderUsesLastKnownPrice(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewInMemory("agent-1", clock.Fixed{At: at})
	e.SetPrice(100)

	order := e.Execute(model.Buy, 2, nil)
	require.Equal(t, model.Executed, order.Status)
	assert.Equal(t, 100.0, order.Price)
	assert.Equal(t, at, order.Timestamp)
	require.NotNil(t, order.ExecutionPrice)
	assert.Equal(t, 100.0, *order.ExecutionPrice)
}

func TestExecuteLimitOrderUsesGivenPrice(t *testing.T) {
	e := NewInMemory("agent-1", clock.System{})
	e.SetPrice(100)
	limit := 95.0

	order := e.Execute(model.Sell, 1, &limit)
	require.Equal(t, model.Executed, order.Status)
	assert.Equal(t, 95.0, order.Price)
}

func TestExecuteFailsWithoutRaisingOnBadAmount(t *testing.T) {
	e := NewInMemory("agent-1", clock.System{})
	e.SetPrice(100)

	order := e.Execute(model.Buy, 0, nil)
	assert.Equal(t, model.Failed, order.Status)
	assert.NotEmpty(t, order.ErrorMessage)
}

func TestExecuteFailsWhenNoPriceKnown(t *testing.T) {
	e := NewInMemory("agent-1", clock.System{})

	order := e.Execute(model.Buy, 1, nil)
	assert.Equal(t, model.Failed, order.Status)
	assert.Contains(t, order.ErrorMessage, "no price available")
}
