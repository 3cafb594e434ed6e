// Package orchestrator runs multiple agents against one Engine under one of
// three strategies (Parallel, Sequential, Hierarchical), assigning each a
// unique id and workspace subdirectory and tracking them for idle cleanup.
//
// The teacher runs exactly one agent per request and has no equivalent of
// this package; its shape is grounded on original_source's stubbed
// MultiAgentOrchestrator (agent pool, task distribution, shared context) and
// realized using this runtime's own Engine rather than a reimplementation of
// that stub.
package orchestrator

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/engine"
	"github.com/pocketomega/agentrt/internal/persistence"
)

// AgentHandle tracks one agent the Orchestrator created: its identity,
// workspace, last-seen activity time, and terminal result once it finishes.
type AgentHandle struct {
	ID            string
	WorkspacePath string
	StartedAt     time.Time
	LastActive    time.Time
	Result        *engine.Result // nil until the run completes
}

func (h *AgentHandle) idle() bool {
	if h.Result == nil {
		return false
	}
	switch h.Result.State.Phase {
	case agentcore.PhaseCompleted, agentcore.PhaseFailed, agentcore.PhaseStopped:
		return true
	default:
		return false
	}
}

// Config configures an Orchestrator.
type Config struct {
	Engine        *engine.Engine
	BaseWorkspace string        // parent directory for per-agent workspace subdirectories
	IdleAge       time.Duration // how long a terminal agent is kept before CleanupIdle removes it
	ExportMetrics bool          // export metrics for an agent when it is removed by CleanupIdle
}

// Orchestrator creates agents against a shared Engine and runs them under
// one of the three strategies in the spec's §4.7. Agent pool bookkeeping
// (register/touch/CleanupIdle) is safe for concurrent use; a Parallel run's
// goroutines touch the pool from multiple goroutines at once.
type Orchestrator struct {
	cfg Config

	mu     sync.Mutex
	agents map[string]*AgentHandle
}

// New creates an Orchestrator from cfg, applying a default IdleAge of 30
// minutes when unset.
func New(cfg Config) *Orchestrator {
	if cfg.IdleAge <= 0 {
		cfg.IdleAge = 30 * time.Minute
	}
	return &Orchestrator{cfg: cfg, agents: make(map[string]*AgentHandle)}
}

// newAgentWorkspace allocates a fresh per-agent id and workspace
// subdirectory under BaseWorkspace, registering the handle in the pool.
func (o *Orchestrator) newAgentWorkspace() (*AgentHandle, error) {
	id := uuid.NewString()
	ws := filepath.Join(o.cfg.BaseWorkspace, id)
	if err := os.MkdirAll(ws, 0o755); err != nil {
		return nil, fmt.Errorf("orchestrator: create workspace for agent %s: %w", id, err)
	}
	h := &AgentHandle{ID: id, WorkspacePath: ws, StartedAt: time.Now(), LastActive: time.Now()}
	o.mu.Lock()
	o.agents[id] = h
	o.mu.Unlock()
	return h, nil
}

func (o *Orchestrator) finish(h *AgentHandle, res engine.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h.Result = &res
	h.LastActive = time.Now()
}

func (o *Orchestrator) touch(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if h, ok := o.agents[id]; ok {
		h.LastActive = time.Now()
	}
}

// AgentStatus returns a snapshot of every tracked agent's id and phase.
func (o *Orchestrator) AgentStatus() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]string, len(o.agents))
	for id, h := range o.agents {
		if h.Result != nil {
			out[id] = string(h.Result.State.Phase)
		} else {
			out[id] = string(agentcore.PhaseInitializing)
		}
	}
	return out
}

// CleanupIdle removes every tracked agent that has been in a terminal phase
// for longer than IdleAge, exporting its metrics first if ExportMetrics is
// set. It returns the ids removed.
func (o *Orchestrator) CleanupIdle() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	var removed []string
	now := time.Now()
	for id, h := range o.agents {
		if !h.idle() || now.Sub(h.LastActive) < o.cfg.IdleAge {
			continue
		}
		if o.cfg.ExportMetrics {
			persistence.ExportBestEffort(h.WorkspacePath, h.Result.Metrics)
		}
		delete(o.agents, id)
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		log.Printf("[Orchestrator] removed %d idle agent(s): %v", len(removed), removed)
	}
	return removed
}

// safeGo launches fn in its own goroutine, recovering and logging any panic
// instead of crashing the orchestrating process. Grounded on the
// panic-isolation idiom of a concurrent goroutine launcher, adapted to this
// runtime's stdlib logging rather than a structured logger.
func safeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Orchestrator] recovered panic in %s: %v", name, r)
			}
		}()
		fn()
	}()
}
