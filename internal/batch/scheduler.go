// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch implements the batch conversion pipeline: bounded-concurrency
// fan-out of work items to conversion workers, per-file failure isolation,
// and deterministic packaging of results in submission order.
package batch

import (
	"context"
	"runtime"
	"sync"

	"github.com/meshint/convertmd/pkg/types"
)

// defaultWorkerCap bounds the default pool size so very large batches do not
// spawn one container per file.
const defaultWorkerCap = 5

// Adapter converts one WorkItem into its Outcome. It must be safe for
// concurrent use and must never panic; internal/convert.Adapter satisfies
// this contract.
type Adapter interface {
	Convert(ctx context.Context, item types.WorkItem) types.Outcome
}

// ProgressFunc receives "completed of total" after each individual
// conversion finishes. Calls are serialized and completed is strictly
// increasing, reaching total exactly once.
type ProgressFunc func(completed, total int)

// DefaultWorkers returns the default worker pool size: available parallelism
// capped at defaultWorkerCap.
func DefaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > defaultWorkerCap {
		n = defaultWorkerCap
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Scheduler executes conversions for a batch under a bounded-concurrency
// policy and collects one Outcome per WorkItem.
type Scheduler struct {
	workers int
}

// NewScheduler creates a scheduler with the given pool size. A non-positive
// size selects DefaultWorkers.
func NewScheduler(workers int) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Scheduler{workers: workers}
}

// Run converts every item and returns a slice with exactly one Outcome per
// submitted index, positioned at its index. Workers pull items from a shared
// queue, so completion order is unspecified; each worker writes only its own
// item's slot, so no lock guards the result slice. A failing conversion never
// cancels sibling items.
//
// Cancellation is cooperative: once ctx is done, workers stop starting new
// items (already-started conversions run to completion) and every unstarted
// item still yields a conversion-error outcome so no index is left empty.
func (s *Scheduler) Run(ctx context.Context, adapter Adapter, items []types.WorkItem, progress ProgressFunc) []types.Outcome {
	outcomes := make([]types.Outcome, len(items))
	if len(items) == 0 {
		return outcomes
	}

	workers := s.workers
	if workers > len(items) {
		workers = len(items)
	}

	queue := make(chan types.WorkItem, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	// Progress updates are serialized under a lock so observers see a
	// strictly increasing count even though workers finish out of order.
	var (
		mu        sync.Mutex
		completed int
	)
	recordDone := func() {
		mu.Lock()
		completed++
		if progress != nil {
			progress(completed, len(items))
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for item := range queue {
				if ctx.Err() != nil {
					outcomes[item.Index] = canceledOutcome(item)
				} else {
					outcomes[item.Index] = adapter.Convert(ctx, item)
				}
				recordDone()
			}
		}()
	}
	wg.Wait()

	return outcomes
}

func canceledOutcome(item types.WorkItem) types.Outcome {
	return types.Outcome{
		Index:   item.Index,
		Name:    item.Name,
		Failure: &types.Failure{
			Reason: types.ReasonConversionError,
			Detail: "canceled",
		},
	}
}
