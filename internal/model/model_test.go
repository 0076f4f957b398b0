package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBuyUpdatesSizeWeightedEntryPrice(t *testing.T) {
	s := NewSimulatorState(1000)
	s.ApplyBuy(1, 100, 100) // first fill: entry == fill price
	require.NotNil(t, s.EntryPrice)
	assert.Equal(t, 100.0, *s.EntryPrice)

	s.ApplyBuy(1, 120, 120) // second fill: entry averages with prior holdings
	require.NotNil(t, s.EntryPrice)
	assert.InDelta(t, 110.0, *s.EntryPrice, 1e-9)
	assert.Equal(t, 2.0, s.Holdings)
	assert.InDelta(t, 780.0, s.Balance, 1e-9)
}

func TestApplySellClearsEntryPriceWhenFlat(t *testing.T) {
	s := NewSimulatorState(200)
	s.ApplyBuy(2, 200, 100)
	s.ApplySell(2, 220)

	assert.Equal(t, 0.0, s.Holdings)
	assert.Nil(t, s.EntryPrice)
	assert.Equal(t, 220.0, s.Balance)
}

func TestAgentStateIsFlat(t *testing.T) {
	var zero AgentState
	assert.True(t, zero.IsFlat())

	entry := 100.0
	held := AgentState{EntryPrice: &entry, PositionSize: 1}
	assert.False(t, held.IsFlat())
}

func TestActionJSONRoundTrip(t *testing.T) {
	for _, a := range []Action{Hold, Buy, Sell} {
		data, err := json.Marshal(a)
		require.NoError(t, err)

		var out Action
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, a, out)
	}
}

func TestOrderStatusJSONRoundTrip(t *testing.T) {
	for _, s := range []OrderStatus{Pending, Executed, Failed, Cancelled} {
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var out OrderStatus
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, s, out)
	}
}

func TestNewOrderIDCarriesPrefixAndIsUnique(t *testing.T) {
	a := NewOrderID("sim")
	b := NewOrderID("sim")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "sim_")
}
