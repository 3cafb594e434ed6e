package tool

import (
	"context"
	"testing"

	"github.com/pocketomega/agentrt/agentcore"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubTool("read_file", agentcore.CapabilityReadOnly))

	tl, ok := r.Get("read_file")
	if !ok {
		t.Fatal("expected tool to be found")
	}
	if tl.Metadata().Name != "read_file" {
		t.Errorf("unexpected tool: %+v", tl.Metadata())
	}
}

func TestRegistry_List_SortedByName(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubTool("zeta"))
	r.Register(newStubTool("alpha"))
	r.Register(newStubTool("mid"))

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(list))
	}
	if list[0].Metadata().Name != "alpha" || list[2].Metadata().Name != "zeta" {
		t.Errorf("expected sorted order, got %v, %v, %v", list[0].Metadata().Name, list[1].Metadata().Name, list[2].Metadata().Name)
	}
}

func TestRegistry_WithExtra_OverridesParent(t *testing.T) {
	root := NewRegistry()
	root.Register(newStubTool("write_file", agentcore.CapabilityWritable))

	override := newStubTool("write_file", agentcore.CapabilityWritable)
	override.execResult.Output = "overridden"
	view := root.WithExtra(override)

	tl, ok := view.Get("write_file")
	if !ok {
		t.Fatal("expected to find overridden tool via view")
	}
	res, _ := tl.Execute(context.Background(), nil, agentcore.Context{})
	if res.Output != "overridden" {
		t.Errorf("expected overridden tool to take precedence, got %q", res.Output)
	}
}

func TestRegistry_WithExtra_DelegatesToParent(t *testing.T) {
	root := NewRegistry()
	root.Register(newStubTool("read_file"))
	view := root.WithExtra(newStubTool("clarify"))

	if _, ok := view.Get("read_file"); !ok {
		t.Error("expected view to delegate lookup to parent")
	}
	if _, ok := view.Get("clarify"); !ok {
		t.Error("expected view to find its own extra")
	}
}

func TestRegistry_InitAll_DependencyOrder(t *testing.T) {
	r := NewRegistry()
	base := newStubTool("base")
	derived := newStubTool("derived")
	derived.deps = []string{"base"}

	r.Register(derived)
	r.Register(base)

	if err := r.InitAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !base.initialized || !derived.initialized {
		t.Error("expected both tools to be initialized")
	}
}

func TestRegistry_InitAll_CycleDetected(t *testing.T) {
	r := NewRegistry()
	a := newStubTool("a")
	a.deps = []string{"b"}
	b := newStubTool("b")
	b.deps = []string{"a"}
	r.Register(a)
	r.Register(b)

	err := r.InitAll(context.Background())
	if err == nil {
		t.Fatal("expected dependency cycle error")
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubTool("temp"))
	r.Unregister("temp")
	if _, ok := r.Get("temp"); ok {
		t.Error("expected tool to be gone after unregister")
	}
}

func TestRegistry_StatsFor_AccumulatesAcrossCalls(t *testing.T) {
	r := NewRegistry()
	r.Register(newStubTool("counted"))
	r.recordCall("counted", true, false, 0)
	r.recordCall("counted", false, false, 0)
	r.recordCall("counted", true, true, 0)

	stats, ok := r.StatsFor("counted")
	if !ok {
		t.Fatal("expected stats to exist")
	}
	if stats.Calls != 3 || stats.Successes != 2 || stats.Failures != 1 || stats.CacheHits != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
