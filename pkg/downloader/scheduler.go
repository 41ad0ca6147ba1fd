package downloader

import (
	"context"
	"sort"

	"github.com/ValerySidorin/disclosure/pkg/progress"
	"github.com/sourcegraph/conc/pool"
)

type runFunc func(ctx context.Context, c Candidate) Result

type indexedResult struct {
	Result
	idx int
}

// schedule runs every candidate through run with at most concurrency units in
// flight. One unit's failure never stops the others. Once ctx is done no
// new unit starts and the remaining candidates come back as skipped.
// Results are returned in input order.
func schedule(ctx context.Context, candidates []Candidate, concurrency int, run runFunc, tracker *progress.Tracker) []Result {
	p := pool.NewWithResults[indexedResult]().WithMaxGoroutines(concurrency)

	skipped := make([]indexedResult, 0)
	for i, c := range candidates {
		i, c := i, c
		if ctx.Err() != nil {
			skipped = append(skipped, indexedResult{Result: Result{Candidate: c, Skipped: true}, idx: i})
			continue
		}

		p.Go(func() indexedResult {
			if ctx.Err() != nil {
				return indexedResult{Result: Result{Candidate: c, Skipped: true}, idx: i}
			}

			tracker.Started()
			defer tracker.Finished()
			return indexedResult{Result: run(ctx, c), idx: i}
		})
	}

	all := append(p.Wait(), skipped...)
	sort.Slice(all, func(a, b int) bool {
		return all[a].idx < all[b].idx
	})

	results := make([]Result, len(all))
	for i, r := range all {
		results[i] = r.Result
	}
	return results
}
