package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultWorkers is the default fan-out width for per-note work.
const DefaultWorkers = 4

// TaskResult carries the outcome of one pooled task. Err is non-nil
// when the task failed or timed out; failures are aggregated, never
// retried within the same pass.
type TaskResult[R any] struct {
	// Index is the position of the input item.
	Index int

	// Value is the task output when Err is nil.
	Value R

	// Err is the task failure, including context.DeadlineExceeded on
	// a per-task timeout.
	Err error
}

// RunPool executes fn over items with a bounded number of workers.
// Each task gets its own timeout so one slow item cannot stall the
// batch, and an optional rate limiter throttles task starts to respect
// external service limits. Results are returned indexed by input
// position.
func RunPool[T, R any](
	ctx context.Context,
	workers int,
	taskTimeout time.Duration,
	limiter *rate.Limiter,
	items []T,
	fn func(ctx context.Context, item T) (R, error),
) []TaskResult[R] {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]TaskResult[R], len(items))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = TaskResult[R]{Index: i}

				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						results[i].Err = err
						continue
					}
				}

				taskCtx := ctx
				var cancel context.CancelFunc
				if taskTimeout > 0 {
					taskCtx, cancel = context.WithTimeout(ctx, taskTimeout)
				}

				value, err := fn(taskCtx, items[i])
				if cancel != nil {
					cancel()
				}

				results[i].Value = value
				results[i].Err = err
			}
		}()
	}

	for i := range items {
		select {
		case <-ctx.Done():
			// Mark unscheduled items as cancelled and stop feeding.
			results[i] = TaskResult[R]{Index: i, Err: ctx.Err()}
			for j := i + 1; j < len(items); j++ {
				results[j] = TaskResult[R]{Index: j, Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return results
		case jobs <- i:
		}
	}

	close(jobs)
	wg.Wait()
	return results
}
