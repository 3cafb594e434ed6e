// Package cache implements the Execution Cache: a TTL- and size-bounded
// memoization layer for tool and reasoning results, keyed by a canonical
// fingerprint of the step that produced them. It generalizes the teacher's
// ReadCache (an unbounded, fixed-allowlist map with no expiry) to the full
// capability-gated, evictable cache the runtime needs.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pocketomega/agentrt/agentcore"
)

// entry is the internal bookkeeping record for one cached value, wrapping
// agentcore.CacheEntry with its list.Element in the recency list.
type entry struct {
	key     string
	value   agentcore.CacheEntry
	element *list.Element
}

// Cache is a TTL- and size-bounded memoization store; at its size cap it
// evicts the oldest entries by Timestamp, not by recency of use. Entries are only ever
// admitted for steps whose tool capabilities are cache-eligible (see
// agentcore.CacheEligible); callers decide eligibility before calling Put.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	max int // <=0 means unbounded entry count; TTL is the only eviction driver

	entries map[string]*entry
	order   *list.List // front = most recently used
}

// New creates a Cache with the given TTL (<=0 disables expiry) and maximum
// entry count (<=0 disables the size cap).
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		ttl:     ttl,
		max:     maxEntries,
		entries: make(map[string]*entry),
		order:   list.New(),
	}
}

// Fingerprint builds a canonical cache key from a tool name, its arguments,
// and the workspace path the step ran under, so identical calls in
// different workspaces never collide. Arguments are marshaled with sorted
// keys so that argument order never changes the key.
func Fingerprint(toolName string, args map[string]any, workspacePath string) string {
	canon := canonicalizeArgs(args)
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", toolName, workspacePath, canon)
	return fmt.Sprintf("%s:%x", toolName, h.Sum(nil))
}

// canonicalizeArgs renders args as JSON with keys in sorted order so that
// logically identical argument maps always produce the same string.
func canonicalizeArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 64)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		kb, _ := json.Marshal(k)
		vb, err := json.Marshal(args[k])
		if err != nil {
			vb = []byte(`"<unmarshalable>"`)
		}
		ordered = append(ordered, kb...)
		ordered = append(ordered, ':')
		ordered = append(ordered, vb...)
	}
	ordered = append(ordered, '}')
	return string(ordered)
}

// Get returns the cached value for key if present and not expired. A hit
// moves the entry to the front of the recency list but leaves its Timestamp,
// which drives expiry and eviction, unchanged.
func (c *Cache) Get(key string) (agentcore.ExecutionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return agentcore.ExecutionResult{}, false
	}
	if c.ttl > 0 && time.Since(e.value.Timestamp) > c.ttl {
		c.removeLocked(e)
		return agentcore.ExecutionResult{}, false
	}
	c.order.MoveToFront(e.element)
	result := e.value.Value
	result.Cached = true
	return result, true
}

// Put stores result under key with the given context fingerprint, evicting
// the oldest entries in bulk first if the cache is at its size cap.
func (c *Cache) Put(key string, result agentcore.ExecutionResult, contextFingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.value = agentcore.CacheEntry{
			Value:              result,
			Timestamp:          time.Now(),
			ContextFingerprint: contextFingerprint,
		}
		c.order.MoveToFront(existing.element)
		return
	}

	if c.max > 0 && len(c.entries) >= c.max {
		c.evictOldestLocked(len(c.entries))
	}

	el := c.order.PushFront(key)
	c.entries[key] = &entry{
		key: key,
		value: agentcore.CacheEntry{
			Value:              result,
			Timestamp:          time.Now(),
			ContextFingerprint: contextFingerprint,
		},
		element: el,
	}
}

// Invalidate removes the cached entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix. Keys
// built by Fingerprint begin with "<toolName>:" followed by a hash, so a
// prefix selects all of one tool's cached results (e.g. "read_file:" after a
// file write).
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			c.removeLocked(e)
		}
	}
}

// Len returns the current number of live entries, including ones that have
// expired but not yet been reaped by a Get.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// removeLocked deletes e from both the map and the LRU list. Caller must
// hold c.mu.
func (c *Cache) removeLocked(e *entry) {
	delete(c.entries, e.key)
	c.order.Remove(e.element)
}

// evictOldestLocked drops the ceil(0.2*count) oldest-by-Timestamp entries,
// at least one. A hard cap evicts in bulk rather than one-at-a-time so a
// cache sitting at its ceiling doesn't pay an eviction on every single Put.
// Caller must hold c.mu.
func (c *Cache) evictOldestLocked(count int) {
	n := (count + 4) / 5 // ceil(0.2*count)
	if n < 1 {
		n = 1
	}
	if n > len(c.entries) {
		n = len(c.entries)
	}

	victims := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		victims = append(victims, e)
	}
	sort.Slice(victims, func(i, j int) bool {
		return victims[i].value.Timestamp.Before(victims[j].value.Timestamp)
	})

	for _, e := range victims[:n] {
		c.removeLocked(e)
	}
}
