package persistence

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Metrics is the final per-agent export: a flat set of named values (cost
// breakdown, iteration count, tool call count, elapsed time, and whatever
// else the engine chooses to report) plus the terminal phase and reason.
type Metrics struct {
	AgentID       string
	FinalPhase    string
	Reason        string
	Iteration     int
	TotalCost     float64
	CostByKind    map[string]float64 // "planning" | "reasoning" | "tool" -> cost
	TotalToolCalls int
	ElapsedSeconds float64
	Extra         map[string]float64
}

// ExportJSON writes m as indented JSON to <dir>/metrics-<agentID>.json.
func ExportJSON(dir string, m Metrics) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metrics mkdir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("metrics marshal: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("metrics-%s.json", m.AgentID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("metrics json write: %w", err)
	}
	return nil
}

// ExportCSV writes m as a flat key,value CSV to <dir>/metrics-<agentID>.csv.
func ExportCSV(dir string, m Metrics) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metrics mkdir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("metrics-%s.csv", m.AgentID))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metrics csv create: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	rows := [][]string{
		{"key", "value"},
		{"agent_id", m.AgentID},
		{"final_phase", m.FinalPhase},
		{"reason", m.Reason},
		{"iteration", strconv.Itoa(m.Iteration)},
		{"total_cost", strconv.FormatFloat(m.TotalCost, 'f', 6, 64)},
		{"total_tool_calls", strconv.Itoa(m.TotalToolCalls)},
		{"elapsed_seconds", strconv.FormatFloat(m.ElapsedSeconds, 'f', 3, 64)},
	}
	for _, kind := range sortedKeys(m.CostByKind) {
		rows = append(rows, []string{"cost_" + kind, strconv.FormatFloat(m.CostByKind[kind], 'f', 6, 64)})
	}
	for _, key := range sortedKeys(m.Extra) {
		rows = append(rows, []string{key, strconv.FormatFloat(m.Extra[key], 'f', 6, 64)})
	}
	return w.WriteAll(rows)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExportBestEffort writes both JSON and CSV, logging but swallowing any
// failure per the spec's best-effort persistence policy.
func ExportBestEffort(dir string, m Metrics) {
	if err := ExportJSON(dir, m); err != nil {
		log.Printf("[Persistence] metrics json export failed for agent %s: %v", m.AgentID, err)
	}
	if err := ExportCSV(dir, m); err != nil {
		log.Printf("[Persistence] metrics csv export failed for agent %s: %v", m.AgentID, err)
	}
}
