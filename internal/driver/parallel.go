package driver

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"graft/internal/diag"
	"graft/internal/observ"
	"graft/internal/snippet"
)

// SpecializeResult is the outcome of building one key.
type SpecializeResult struct {
	Key      string
	Template *snippet.Template
	Bag      *diag.Bag
	Timing   observ.Report
}

// maxDiagnosticsPerKey bounds the bag of one specialization; a single build
// faults fail-fast, so one slot plus room for notes is plenty.
const maxDiagnosticsPerKey = 16

// SpecializeAll builds every key through the shared cache with at most jobs
// workers. Construction faults are collected per key as diagnostics rather
// than aborting the sweep; only context cancellation stops it early.
// Results come back in the input key order regardless of scheduling.
func SpecializeAll(ctx context.Context, cache *snippet.Cache, keys []*snippet.Key, jobs int) ([]SpecializeResult, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]SpecializeResult, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(keys), 1)))

	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			timer := observ.NewTimer()
			bag := diag.NewBag(maxDiagnosticsPerKey)
			var tpl *snippet.Template
			err := timer.Track("specialize", func() error {
				var err error
				tpl, err = cache.GetOrBuild(key)
				return err
			})
			if err != nil {
				var fault *snippet.Fault
				if errors.As(err, &fault) {
					bag.Add(fault.Diagnostic())
				} else {
					bag.Add(diag.Diagnostic{
						Severity: diag.SevError,
						Code:     diag.TplInfo,
						Message:  err.Error(),
						Template: key.Method().Name(),
					})
				}
			}
			// Index is unique per goroutine, no mutex needed.
			results[i] = SpecializeResult{
				Key:      key.String(),
				Template: tpl,
				Bag:      bag,
				Timing:   timer.Report(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// WarmFromDisk preloads the in-memory cache from the disk cache for the
// given keys. Misses and decode failures are skipped silently; a cold start
// just rebuilds.
func WarmFromDisk(dc *DiskCache, cache *snippet.Cache, keys []*snippet.Key) int {
	warmed := 0
	for _, key := range keys {
		t, ok, err := dc.Get(key.String())
		if err != nil || !ok {
			continue
		}
		cache.Publish(t)
		warmed++
	}
	return warmed
}

// PersistAll writes every successfully built template to the disk cache.
func PersistAll(dc *DiskCache, results []SpecializeResult) error {
	for _, r := range results {
		if r.Template == nil {
			continue
		}
		if err := dc.Put(r.Template); err != nil {
			return err
		}
	}
	return nil
}

// CollectDiagnostics merges per-key bags into one sorted bag.
func CollectDiagnostics(results []SpecializeResult) *diag.Bag {
	total := 0
	for _, r := range results {
		total += r.Bag.Len()
	}
	out := diag.NewBag(max(total, 1))
	for _, r := range results {
		out.Merge(r.Bag)
	}
	out.Sort()
	return out
}

// MergeTimings folds the per-key phase reports into one.
func MergeTimings(results []SpecializeResult) observ.Report {
	reports := make([]observ.Report, len(results))
	for i, r := range results {
		reports[i] = r.Timing
	}
	return observ.MergeReports(reports...)
}

// SortedKeys returns the canonical keys of all results in stable order.
func SortedKeys(results []SpecializeResult) []string {
	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.Key
	}
	sort.Strings(keys)
	return keys
}
