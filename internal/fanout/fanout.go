// Package fanout runs independent stage tasks on a bounded worker pool.
// A failing task never cancels its siblings; its error is returned in its
// Result slot instead.
package fanout

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result is produced by one task. Index is the task's position in the input.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Run calls fn for every job with at most workers in flight and returns the
// results in job order. Once ctx is done no new jobs start; jobs that never
// started carry ctx.Err().
func Run[J, T any](ctx context.Context, workers int, jobs []J, fn func(context.Context, J) (T, error)) []Result[T] {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result[T], len(jobs))
	for i := range results {
		results[i].Index = i
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(jobs); j++ {
				results[j].Err = err
			}
			break
		}
		g.Go(func() error {
			results[i] = runOne(gctx, i, job, fn)
			return nil
		})
	}
	_ = g.Wait() // errors captured in Result.Err
	return results
}

func runOne[J, T any](ctx context.Context, i int, job J, fn func(context.Context, J) (T, error)) (r Result[T]) {
	r.Index = i
	defer func() {
		if p := recover(); p != nil {
			r.Err = fmt.Errorf("task %d panicked: %v", i, p)
		}
	}()
	r.Value, r.Err = fn(ctx, job)
	return r
}

// Tally counts successful and failed results.
func Tally[T any](results []Result[T]) (ok, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed
}
