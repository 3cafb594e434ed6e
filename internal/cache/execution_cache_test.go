package cache

import (
	"testing"
	"time"

	"github.com/pocketomega/agentrt/agentcore"
)

func TestCache_PutAndGet(t *testing.T) {
	c := New(time.Hour, 0)
	key := Fingerprint("file_read", map[string]any{"path": "a.go"}, "/workspace")
	c.Put(key, agentcore.ExecutionResult{Success: true, Output: "content-a"}, "fp1")

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Output != "content-a" || !got.Cached {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(time.Hour, 0)
	_, ok := c.Get(Fingerprint("file_read", map[string]any{"path": "nonexistent.go"}, "/workspace"))
	if ok {
		t.Error("expected cache miss")
	}
}

func TestCache_Fingerprint_ArgOrderIndependent(t *testing.T) {
	a := map[string]any{"path": "a.go", "mode": "r"}
	b := map[string]any{"mode": "r", "path": "a.go"}
	if Fingerprint("file_read", a, "/ws") != Fingerprint("file_read", b, "/ws") {
		t.Error("fingerprint should be independent of map iteration order")
	}
}

func TestCache_Fingerprint_WorkspaceIsolation(t *testing.T) {
	args := map[string]any{"path": "a.go"}
	if Fingerprint("file_read", args, "/ws-one") == Fingerprint("file_read", args, "/ws-two") {
		t.Error("fingerprints from different workspaces should not collide")
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New(time.Hour, 0)
	key := Fingerprint("file_read", map[string]any{"path": "a.go"}, "/ws")
	c.Put(key, agentcore.ExecutionResult{Output: "content-a"}, "fp1")
	c.Invalidate(key)

	if _, ok := c.Get(key); ok {
		t.Error("expected cache miss after invalidation")
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New(time.Hour, 0)
	keyA := "file_list:aaa"
	keyB := "file_list:bbb"
	c.Put(keyA, agentcore.ExecutionResult{Output: "a"}, "fp")
	c.Put(keyB, agentcore.ExecutionResult{Output: "b"}, "fp")

	c.InvalidatePrefix("file_list:")

	if _, ok := c.Get(keyA); ok {
		t.Error("expected keyA evicted by prefix invalidation")
	}
	if _, ok := c.Get(keyB); ok {
		t.Error("expected keyB evicted by prefix invalidation")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(20*time.Millisecond, 0)
	key := Fingerprint("file_read", map[string]any{"path": "a.go"}, "/ws")
	c.Put(key, agentcore.ExecutionResult{Output: "stale"}, "fp")

	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Error("expected entry to expire after TTL")
	}
}

func TestCache_EvictsOldestByTimestamp(t *testing.T) {
	c := New(time.Hour, 2)
	c.Put("a", agentcore.ExecutionResult{Output: "a"}, "fp")
	c.Put("b", agentcore.ExecutionResult{Output: "b"}, "fp")

	// a Get does not refresh an entry's Timestamp, so "a" stays the oldest
	c.Get("a")

	c.Put("c", agentcore.ExecutionResult{Output: "c"}, "fp")

	if _, ok := c.Get("a"); ok {
		t.Error("expected a evicted as the oldest entry")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c present after insert")
	}
}

func TestCache_Len(t *testing.T) {
	c := New(time.Hour, 0)
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
	c.Put("a", agentcore.ExecutionResult{}, "fp")
	c.Put("b", agentcore.ExecutionResult{}, "fp")
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestCache_DifferentKeyNotAffectedByInvalidate(t *testing.T) {
	c := New(time.Hour, 0)
	keyA := Fingerprint("file_read", map[string]any{"path": "a.go"}, "/ws")
	keyB := Fingerprint("file_read", map[string]any{"path": "b.go"}, "/ws")
	c.Put(keyA, agentcore.ExecutionResult{Output: "content-a"}, "fp")
	c.Put(keyB, agentcore.ExecutionResult{Output: "content-b"}, "fp")

	c.Invalidate(keyA)

	if _, ok := c.Get(keyB); !ok {
		t.Error("expected keyB unaffected by keyA invalidation")
	}
}
