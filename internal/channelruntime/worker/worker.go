// Package worker runs queued jobs concurrently under a shared semaphore.
package worker

import (
	"context"
	"sync"
)

type StartOptions[J any] struct {
	Ctx  context.Context
	Sem  chan struct{}
	Jobs <-chan J
	// Handle runs in its own goroutine while holding one Sem slot.
	Handle func(context.Context, J)
	// Wait, when set, tracks running jobs so the caller can drain them.
	Wait *sync.WaitGroup
}

// Start pulls jobs until Ctx is done or Jobs is closed. Jobs beyond the
// semaphore's capacity wait in Jobs.
func Start[J any](opts StartOptions[J]) {
	if opts.Wait != nil {
		opts.Wait.Add(1)
	}
	go func() {
		if opts.Wait != nil {
			defer opts.Wait.Done()
		}
		for {
			select {
			case <-opts.Ctx.Done():
				return
			case job, ok := <-opts.Jobs:
				if !ok {
					return
				}
				select {
				case opts.Sem <- struct{}{}:
				case <-opts.Ctx.Done():
					return
				}
				if opts.Wait != nil {
					opts.Wait.Add(1)
				}
				go func(job J) {
					defer func() {
						<-opts.Sem
						if opts.Wait != nil {
							opts.Wait.Done()
						}
					}()
					opts.Handle(opts.Ctx, job)
				}(job)
			}
		}
	}()
}

func Enqueue[J any](ctx, workersCtx context.Context, jobs chan<- J, job J) error {
	if ctx == nil {
		ctx = workersCtx
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-workersCtx.Done():
		return workersCtx.Err()
	case jobs <- job:
		return nil
	}
}
