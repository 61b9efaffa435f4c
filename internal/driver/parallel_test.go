package driver

import (
	"context"
	"testing"

	"graft/internal/diag"
	"graft/internal/lowering"
	"graft/internal/observ"
	"graft/internal/snippet"
)

func catalogKeys(t *testing.T, sumLengths ...int) (*lowering.Catalog, []*snippet.Key) {
	t.Helper()
	cat, err := lowering.NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	keys, err := cat.Keys(sumLengths)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	return cat, keys
}

func TestSpecializeAllBuildsEveryKey(t *testing.T) {
	cat, keys := catalogKeys(t, 2, 3)

	results, err := SpecializeAll(context.Background(), cat.Cache(), keys, 4)
	if err != nil {
		t.Fatalf("SpecializeAll: %v", err)
	}
	if len(results) != len(keys) {
		t.Fatalf("got %d results for %d keys", len(results), len(keys))
	}
	for i, r := range results {
		if r.Key != keys[i].String() {
			t.Fatalf("result %d is for %q, want input order %q", i, r.Key, keys[i].String())
		}
		if r.Template == nil {
			t.Fatalf("key %q built no template", r.Key)
		}
		if r.Bag.Len() != 0 {
			t.Fatalf("key %q collected diagnostics: %v", r.Key, r.Bag.Items())
		}
		if len(r.Timing.Phases) == 0 {
			t.Fatalf("key %q tracked no phases", r.Key)
		}
	}
	if got := cat.Cache().Len(); got != len(keys) {
		t.Fatalf("cache holds %d templates, want %d", got, len(keys))
	}
}

func TestSpecializeAllCollectsFaultsPerKey(t *testing.T) {
	cat, _ := catalogKeys(t)

	// A sum key with no constant binding faults during specialization.
	sum, ok := cat.Builder().Lookup("lower.sum")
	if !ok {
		t.Fatalf("sum snippet not registered")
	}
	bad := snippet.NewKey(sum)
	good, err := cat.SumKey(2)
	if err != nil {
		t.Fatalf("SumKey: %v", err)
	}

	results, err := SpecializeAll(context.Background(), cat.Cache(), []*snippet.Key{bad, good}, 2)
	if err != nil {
		t.Fatalf("SpecializeAll: %v", err)
	}
	if results[0].Template != nil {
		t.Fatalf("faulting key produced a template")
	}
	if results[0].Bag.Len() != 1 {
		t.Fatalf("faulting key collected %d diagnostics, want 1", results[0].Bag.Len())
	}
	if code := results[0].Bag.Items()[0].Code; code != diag.TplArgMissing {
		t.Fatalf("diagnostic code = %s, want %s", code, diag.TplArgMissing)
	}
	if results[1].Template == nil {
		t.Fatalf("healthy key failed alongside the faulting one")
	}

	merged := CollectDiagnostics(results)
	if merged.Len() != 1 || !merged.HasErrors() {
		t.Fatalf("merged bag: len=%d hasErrors=%v", merged.Len(), merged.HasErrors())
	}
}

func TestSpecializeAllStopsOnCancelledContext(t *testing.T) {
	cat, keys := catalogKeys(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := SpecializeAll(ctx, cat.Cache(), keys, 2); err == nil {
		t.Fatalf("cancelled sweep reported success")
	}
}

func TestWarmFromDiskSkipsRebuilds(t *testing.T) {
	dc, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}

	cat, keys := catalogKeys(t, 2, 4)
	results, err := SpecializeAll(context.Background(), cat.Cache(), keys, 0)
	if err != nil {
		t.Fatalf("SpecializeAll: %v", err)
	}
	if err := PersistAll(dc, results); err != nil {
		t.Fatalf("PersistAll: %v", err)
	}

	// A fresh catalog simulates the next process: everything comes off disk.
	cold, coldKeys := catalogKeys(t, 2, 4)
	warmed := WarmFromDisk(dc, cold.Cache(), coldKeys)
	if warmed != len(coldKeys) {
		t.Fatalf("warmed %d of %d keys", warmed, len(coldKeys))
	}
	if got := cold.Cache().Len(); got != len(coldKeys) {
		t.Fatalf("cache holds %d templates after warming, want %d", got, len(coldKeys))
	}

	rebuilt, err := SpecializeAll(context.Background(), cold.Cache(), coldKeys, 0)
	if err != nil {
		t.Fatalf("SpecializeAll after warming: %v", err)
	}
	for i, r := range rebuilt {
		if r.Template.Signature() != results[i].Template.Signature() {
			t.Fatalf("key %q: warmed signature %q, built %q", r.Key, r.Template.Signature(), results[i].Template.Signature())
		}
	}
}

func TestWarmFromDiskColdCache(t *testing.T) {
	dc, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	cat, keys := catalogKeys(t, 2)
	if warmed := WarmFromDisk(dc, cat.Cache(), keys); warmed != 0 {
		t.Fatalf("cold disk cache warmed %d keys", warmed)
	}
	if got := cat.Cache().Len(); got != 0 {
		t.Fatalf("cold warm-up published %d templates", got)
	}
}

func TestCollectDiagnosticsSorts(t *testing.T) {
	b1 := diag.NewBag(4)
	b1.Add(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.TplInfo, Template: "zz"})
	b2 := diag.NewBag(4)
	b2.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.TplArgMissing, Template: "aa"})

	merged := CollectDiagnostics([]SpecializeResult{{Bag: b1}, {Bag: b2}})
	if merged.Len() != 2 {
		t.Fatalf("merged %d diagnostics, want 2", merged.Len())
	}
	if got := merged.Items()[0].Template; got != "aa" {
		t.Fatalf("first diagnostic from %q, want template-sorted order", got)
	}
}

func TestMergeTimingsSumsPhases(t *testing.T) {
	results := []SpecializeResult{
		{Timing: observ.Report{TotalMS: 2, Phases: []observ.PhaseReport{{Name: "specialize", DurationMS: 2}}}},
		{Timing: observ.Report{TotalMS: 3, Phases: []observ.PhaseReport{{Name: "specialize", DurationMS: 3}}}},
	}
	merged := MergeTimings(results)
	if len(merged.Phases) != 1 {
		t.Fatalf("merged %d phases, want 1", len(merged.Phases))
	}
	if merged.Phases[0].Name != "specialize" || merged.Phases[0].DurationMS != 5 {
		t.Fatalf("merged phase = %+v, want specialize at 5ms", merged.Phases[0])
	}
	if merged.TotalMS != 5 {
		t.Fatalf("merged total = %.2f, want 5", merged.TotalMS)
	}
}

func TestSortedKeysAreStable(t *testing.T) {
	results := []SpecializeResult{{Key: "b"}, {Key: "a"}, {Key: "c"}}
	keys := SortedKeys(results)
	want := []string{"a", "b", "c"}
	for i, k := range keys {
		if k != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, k, want[i])
		}
	}
}
