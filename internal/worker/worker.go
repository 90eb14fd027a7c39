package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type ProcessFunc[T any] func(ctx context.Context, job T) error

type Pool[T any] struct {
	name       string
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup
}

func NewPool[T any](name string, numWorkers int, bufferSize int, processor ProcessFunc[T]) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		name:       name,
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

func (p *Pool[T]) Start(ctx context.Context) {
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool[T]) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.processor(ctx, job); err != nil {
				slog.Error("job failed", "pool", p.name, "worker", id, "error", err)
			}
		}
	}
}

// Submit queues a job, blocking while the buffer is full. It must not be
// called after Stop.
func (p *Pool[T]) Submit(job T) {
	p.jobs <- job
}

// SubmitContext queues a job unless ctx is done first.
func (p *Pool[T]) SubmitContext(ctx context.Context, job T) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("error submitting to %s pool: %w", p.name, ctx.Err())
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (p *Pool[T]) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
