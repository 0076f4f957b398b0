// Package resultio reads experiment plans and writes grid-search results
// and append-only log lines in the formats spec §6 names: a JSON
// experiment-plan input, a JSON result document with "all_results",
// "best_result" and "summary" keys, and a "[ISO-timestamp] message" log
// file.
package resultio

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Experiment is one row of a structural (L18-style) experiment plan
// (grid_search_rsi_macd_bb_l18.py's plan_data['experiments']).
type Experiment struct {
	ExperimentNumber int     `json:"experiment"`
	RSIPeriod        int     `json:"rsi_period"`
	RSIOversold      float64 `json:"rsi_oversold"`
	RSIOverbought    float64 `json:"rsi_overbought"`
	MACDFast         int     `json:"macd_fast"`
	MACDSlow         int     `json:"macd_slow"`
	MACDSignal       int     `json:"macd_signal"`
	BBPeriod         int     `json:"bb_period"`
	BBStdDev         float64 `json:"bb_std_dev"`
	StopLoss         float64 `json:"stop_loss"`
}

// ExperimentPlan is the top-level shape of a structural experiment-plan
// JSON file.
type ExperimentPlan struct {
	Experiments []Experiment `json:"experiments"`
}

// ReadExperimentPlan parses path into an ExperimentPlan.
func ReadExperimentPlan(path string) (ExperimentPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ExperimentPlan{}, err
	}
	var plan ExperimentPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return ExperimentPlan{}, fmt.Errorf("resultio: parsing experiment plan: %w", err)
	}
	return plan, nil
}

// WriteJSON writes payload to path as indented JSON, matching the
// original's `json.dump(..., indent=2, ensure_ascii=False)` formatting.
// payload is typically a struct with "all_results"/"best_result"/
// "summary" fields built by the caller, kept generic here so resultio
// never needs to import gridsearch's generic result types.
func WriteJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("resultio: encoding result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// AppendLog appends a "[ISO-timestamp] message" line to path, creating
// it if necessary. A write failure here is an IOFailure per spec §7: the
// caller should warn and continue, not abort the search — AppendLog
// itself just returns the error for the caller to decide.
func AppendLog(path string, message string, at time.Time) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "[%s] %s\n", at.UTC().Format(time.RFC3339), message)
	return err
}
