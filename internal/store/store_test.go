package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutPriceInsertsRow(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutPrice(PriceRecord{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Price: 100}))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM prices`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPutDecisionInsertsRow(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutDecision(DecisionRecord{
		AgentID: "ma_cross_2_5", Timestamp: time.Now(), Action: "BUY", Confidence: 0.8, Price: 101, Reason: "crossover",
	}))

	var agentID string
	require.NoError(t, s.db.QueryRow(`SELECT agent_id FROM decisions`).Scan(&agentID))
	assert.Equal(t, "ma_cross_2_5", agentID)
}

func TestPutOrderInsertsRow(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutOrder(OrderRecord{
		ID: "exec_1", AgentID: "ma_cross_2_5", Action: "BUY", Amount: 1, Price: 101, Timestamp: time.Now(), Status: "EXECUTED",
	}))

	var status string
	require.NoError(t, s.db.QueryRow(`SELECT status FROM orders WHERE id = ?`, "exec_1").Scan(&status))
	assert.Equal(t, "EXECUTED", status)
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.PutPrice(PriceRecord{Timestamp: time.Now(), Price: 50}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	var count int
	require.NoError(t, s2.db.QueryRow(`SELECT COUNT(*) FROM prices`).Scan(&count))
	assert.Equal(t, 1, count)
}
