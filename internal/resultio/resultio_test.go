package resultio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadExperimentPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"experiments":[{"experiment":1,"rsi_period":14,"rsi_oversold":30,"rsi_overbought":70,"macd_fast":12,"macd_slow":26,"macd_signal":9,"bb_period":20,"bb_std_dev":2.0,"stop_loss":0.05}]}`), 0o644))

	plan, err := ReadExperimentPlan(path)
	require.NoError(t, err)
	require.Len(t, plan.Experiments, 1)
	assert.Equal(t, 1, plan.Experiments[0].ExperimentNumber)
	assert.Equal(t, 14, plan.Experiments[0].RSIPeriod)
}

func TestWriteJSONRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	payload := map[string]any{"summary": map[string]any{"total_tests": 3}}
	require.NoError(t, WriteJSON(path, payload))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_tests": 3`)
}

func TestAppendLogCreatesAndAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, AppendLog(path, "started", at))
	require.NoError(t, AppendLog(path, "finished", at.Add(time.Minute)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[2024-01-01T00:00:00Z] started\n[2024-01-01T00:01:00Z] finished\n", string(data))
}
