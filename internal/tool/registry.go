package tool

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// Stats accumulates per-tool usage counters. All fields are updated only
// through atomic-safe Registry methods; callers must not mutate a Stats
// value obtained from Registry.StatsFor directly.
type Stats struct {
	Calls        int64
	Successes    int64
	Failures     int64
	CacheHits    int64
	TotalLatency time.Duration
}

// Registry manages registered tools with thread-safe access. Like the
// teacher's registry, it supports a parent/view chain via WithExtra so a
// caller can overlay per-request tools (e.g. a clarification tool scoped to
// one agent run) without mutating the shared root registry: reads check the
// view's own extras first, then delegate to parent.
//
// Per §7's shared-resource policy, a Registry is treated as immutable after
// InitAll; the only shared-mutable state afterward is per-tool Stats, which
// must tolerate concurrent increments.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	stats  map[string]*statsCounter
	parent *Registry
}

type statsCounter struct {
	mu    sync.Mutex
	stats Stats
}

// NewRegistry creates an empty root tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		stats: make(map[string]*statsCounter),
	}
}

// Register adds a tool to the registry, overwriting any existing tool with
// the same name and logging a warning when it does.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Metadata().Name
	if _, exists := r.tools[name]; exists {
		log.Printf("[Registry] WARNING: overwriting existing tool %q", name)
	}
	r.tools[name] = t
	if _, ok := r.stats[name]; !ok {
		r.stats[name] = &statsCounter{}
	}
}

// Unregister removes a tool, used for hot-reload.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	log.Printf("[Registry] Unregistered tool: %s", name)
}

// Get retrieves a tool by name, checking this view's extras first and then
// delegating to the parent chain.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if ok {
		return t, true
	}
	if r.parent != nil {
		return r.parent.Get(name)
	}
	return nil, false
}

// List returns all visible tools sorted by name, merging parent tools with
// this view's extras (extras override parent entries of the same name).
func (r *Registry) List() []Tool {
	if r.parent == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		result := make([]Tool, 0, len(r.tools))
		for _, t := range r.tools {
			result = append(result, t)
		}
		sort.Slice(result, func(i, j int) bool { return result[i].Metadata().Name < result[j].Metadata().Name })
		return result
	}

	parentTools := r.parent.List()
	r.mu.RLock()
	extras := make(map[string]Tool, len(r.tools))
	for k, v := range r.tools {
		extras[k] = v
	}
	r.mu.RUnlock()

	result := make([]Tool, 0, len(parentTools)+len(extras))
	for _, t := range parentTools {
		if _, overridden := extras[t.Metadata().Name]; !overridden {
			result = append(result, t)
		}
	}
	for _, t := range extras {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Metadata().Name < result[j].Metadata().Name })
	return result
}

// WithExtra returns a view of this Registry with additional tools overlaid.
// The view can be chained: root.WithExtra(a).WithExtra(b).
func (r *Registry) WithExtra(extras ...Tool) *Registry {
	extrasMap := make(map[string]Tool, len(extras))
	statsMap := make(map[string]*statsCounter, len(extras))
	for _, t := range extras {
		name := t.Metadata().Name
		extrasMap[name] = t
		statsMap[name] = &statsCounter{}
	}
	return &Registry{
		parent: r,
		tools:  extrasMap,
		stats:  statsMap,
	}
}

// InitAll initializes every tool registered directly on this registry (not
// its parent chain), honoring declared dependencies: a tool's dependencies
// are initialized before the tool itself. Init is idempotent per tool,
// called exactly once each. Returns ErrDependencyCycle if dependencies do
// not form a DAG.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic iteration order
	r.mu.RUnlock()

	order, err := r.dependencyOrder(names)
	if err != nil {
		return err
	}

	for _, name := range order {
		r.mu.RLock()
		t, ok := r.tools[name]
		r.mu.RUnlock()
		if !ok {
			continue // was only a dependency name, not itself registered on this view
		}
		if err := t.Init(ctx); err != nil {
			return fmt.Errorf("init tool %q: %w", name, err)
		}
	}
	log.Printf("[Registry] Initialized %d tools", len(names))
	return nil
}

// dependencyOrder returns names plus everything they transitively depend on,
// topologically sorted so each tool follows all of its dependencies. It
// detects cycles via DFS with a three-color marking scheme.
func (r *Registry) dependencyOrder(names []string) ([]string, error) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int)
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("%w: tool %q", ErrDependencyCycle, name)
		}
		color[name] = gray

		if t, ok := r.Get(name); ok {
			for _, dep := range t.Dependencies() {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[name] = black
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// CloseAll closes every tool registered directly on this registry, logging
// (but not failing on) close errors.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, t := range r.tools {
		if err := t.Close(); err != nil {
			log.Printf("[Registry] Error closing tool %s: %v", name, err)
		}
	}
}

// recordCall updates the Stats for name with the outcome of one Execute
// call. Safe for concurrent use by multiple agents sharing this registry.
func (r *Registry) recordCall(name string, success, cacheHit bool, latency time.Duration) {
	r.mu.RLock()
	sc, ok := r.stats[name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats.Calls++
	if success {
		sc.stats.Successes++
	} else {
		sc.stats.Failures++
	}
	if cacheHit {
		sc.stats.CacheHits++
	}
	sc.stats.TotalLatency += latency
}

// StatsFor returns a snapshot of the accumulated Stats for a tool name.
func (r *Registry) StatsFor(name string) (Stats, bool) {
	r.mu.RLock()
	sc, ok := r.stats[name]
	r.mu.RUnlock()
	if !ok {
		if r.parent != nil {
			return r.parent.StatsFor(name)
		}
		return Stats{}, false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.stats, true
}
