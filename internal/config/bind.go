package config

import (
	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/engine"
)

// Limits projects s onto an agentcore.Limits for a single Engine.Run call.
func (s Settings) Limits() agentcore.Limits {
	return agentcore.Limits{
		MaxIterations:  s.MaxIterations,
		MaxCost:        s.MaxCost,
		MaxToolCalls:   s.MaxToolCalls,
		MaxTimeSeconds: s.MaxTimeSeconds,
		MaxCacheSize:   s.ToolCacheSize,
		ToolCacheTTL:   s.ToolCacheTTL,
	}
}

// ApplyTunables copies s's engine-level tunables (everything that is not a
// per-run Limit: checkpointing, observation history, temperatures, cache
// sizing) onto cfg and returns it, leaving cfg's dependency fields
// (Provider/Registry/Planner/Replanner/Memory/Prices) untouched.
func (s Settings) ApplyTunables(cfg engine.Config) engine.Config {
	cfg.MaxConsecutiveErrors = s.MaxConsecutiveErrors
	cfg.CheckpointInterval = s.CheckpointInterval
	cfg.ObservationHistorySize = s.ObservationHistorySize
	cfg.CacheTTL = s.ToolCacheTTL
	cfg.CacheMaxEntries = s.ToolCacheSize
	cfg.PlanningTemperature = s.PlanningTemperature
	cfg.ReasoningTemperature = s.ReasoningTemperature
	return cfg
}
