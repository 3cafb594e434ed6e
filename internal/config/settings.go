package config

import (
	"os"
	"strconv"
	"time"
)

// Settings holds every overridable default the spec's Configuration table
// names. FromEnv reads each as AGENT_<FIELD>, falling back to the listed
// default whenever the variable is unset or unparsable.
type Settings struct {
	MaxIterations          int
	MaxCost                float64
	MaxToolCalls           int
	MaxTimeSeconds         int
	ToolCacheSize          int
	ToolCacheTTL           time.Duration
	ObservationHistorySize int
	MaxConsecutiveErrors   int
	ReasoningTemperature   float64
	PlanningTemperature    float64
	CheckpointInterval     int
}

// Defaults returns the spec's Configuration defaults table unmodified.
func Defaults() Settings {
	return Settings{
		MaxIterations:          50,
		MaxCost:                5.0,
		MaxToolCalls:           100,
		MaxTimeSeconds:         3600,
		ToolCacheSize:          100,
		ToolCacheTTL:           300 * time.Second,
		ObservationHistorySize: 10,
		MaxConsecutiveErrors:   3,
		ReasoningTemperature:   0.7,
		PlanningTemperature:    0.2,
		CheckpointInterval:     5,
	}
}

// FromEnv returns Defaults with any AGENT_* environment variable override
// applied. Call LoadEnv first to populate the process environment from a
// .env file, if one should be consulted.
func FromEnv() Settings {
	s := Defaults()
	s.MaxIterations = envInt("AGENT_MAX_ITERATIONS", s.MaxIterations)
	s.MaxCost = envFloat("AGENT_MAX_COST", s.MaxCost)
	s.MaxToolCalls = envInt("AGENT_MAX_TOOL_CALLS", s.MaxToolCalls)
	s.MaxTimeSeconds = envInt("AGENT_MAX_TIME_SECONDS", s.MaxTimeSeconds)
	s.ToolCacheSize = envInt("AGENT_TOOL_CACHE_SIZE", s.ToolCacheSize)
	s.ToolCacheTTL = envDuration("AGENT_TOOL_CACHE_TTL", s.ToolCacheTTL)
	s.ObservationHistorySize = envInt("AGENT_OBSERVATION_HISTORY_SIZE", s.ObservationHistorySize)
	s.MaxConsecutiveErrors = envInt("AGENT_MAX_CONSECUTIVE_ERRORS", s.MaxConsecutiveErrors)
	s.ReasoningTemperature = envFloat("AGENT_REASONING_TEMPERATURE", s.ReasoningTemperature)
	s.PlanningTemperature = envFloat("AGENT_PLANNING_TEMPERATURE", s.PlanningTemperature)
	s.CheckpointInterval = envInt("AGENT_CHECKPOINT_INTERVAL", s.CheckpointInterval)
	return s
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
