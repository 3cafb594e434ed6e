// Package persistence implements the Agent Engine's two on-disk surfaces:
// periodic checkpoint JSON under the per-agent workspace, and a final
// metrics export in both JSON and flat CSV. Neither failure mode aborts a
// run — per the spec's propagation policy, write failures are logged and
// ignored.
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pocketomega/agentrt/agentcore"
)

// Checkpoint is the engine's periodic snapshot: enough state to describe
// where a run is and, loaded back, to continue it.
type Checkpoint struct {
	Timestamp          time.Time              `json:"timestamp"`
	AgentID            string                 `json:"agent_id"`
	Phase              agentcore.AgentPhase   `json:"phase"`
	Iteration          int                    `json:"iteration"`
	Plan               *agentcore.Plan        `json:"plan"`
	RecentObservations []agentcore.Observation `json:"recent_observations"`
	BudgetSnapshot     map[string]any         `json:"budget_snapshot"`
	Metrics            map[string]any         `json:"metrics"`
}

// CheckpointPath returns the conventional checkpoint filename for agentID
// under workspacePath.
func CheckpointPath(workspacePath, agentID string) string {
	return filepath.Join(workspacePath, fmt.Sprintf("checkpoint-%s.json", agentID))
}

// WriteCheckpoint marshals cp and writes it to path, creating parent
// directories as needed. Callers should treat a returned error as
// log-and-ignore per the spec's checkpoint-failure policy; WriteCheckpoint
// itself only builds the error, it does not swallow it, so callers that
// want the best-effort behavior should use WriteCheckpointBestEffort.
func WriteCheckpoint(path string, cp Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("checkpoint mkdir: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint write: %w", err)
	}
	return nil
}

// WriteCheckpointBestEffort writes cp to path, logging but swallowing any
// failure so a checkpoint problem never aborts a run.
func WriteCheckpointBestEffort(path string, cp Checkpoint) {
	if err := WriteCheckpoint(path, cp); err != nil {
		log.Printf("[Persistence] checkpoint write failed for agent %s, continuing: %v", cp.AgentID, err)
	}
}

// LoadCheckpoint reads and unmarshals a checkpoint previously written by
// WriteCheckpoint.
func LoadCheckpoint(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint read: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint decode: %w", err)
	}
	return cp, nil
}
