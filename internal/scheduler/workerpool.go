package scheduler

import (
	"context"
	"sync"

	"ratingxchange/pkg/logger"
)

// workerPool runs bounded concurrent jobs off the control loop's own
// goroutine, so that one exchange's assignment computation blocking does
// not delay the next tick's scan. Grounded on the teacher's
// SolverService shutdown/tracking shape (shutdownCh + sync.WaitGroup,
// services/solver-svc/internal/service/solver.go's trackRequest/
// cacheResultAsync), generalized from "one background goroutine per
// cache write" to "N background goroutines bounded by a semaphore."
type workerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size < 1 {
		size = 1
	}
	return &workerPool{sem: make(chan struct{}, size)}
}

// submit runs job in a pooled goroutine, recovering any panic so that one
// exchange's failure can never take down the scheduler's control loop or
// any other exchange's processing in flight (spec.md §4.7's
// AssignmentError transition assumes the loop survives a bad exchange).
func (p *workerPool) submit(ctx context.Context, label string, job func(ctx context.Context)) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Error("scheduler: job panicked", "job", label, "panic", r)
			}
		}()
		job(ctx)
	}()
}

// wait blocks until every submitted job has returned.
func (p *workerPool) wait() {
	p.wg.Wait()
}
