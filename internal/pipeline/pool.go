package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Job is one independent, idempotent scoring task: one (track, user) pair
// under the current ensemble version.
type Job struct {
	RunID   uuid.UUID
	UserID  string
	TrackID string
}

// Pool runs scoring jobs on a fixed set of workers over a bounded queue.
// Per-track scoring shares no mutable state, so jobs are embarrassingly
// parallel.
type Pool struct {
	jobs    chan Job
	handler func(ctx context.Context, job Job)
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given queue capacity. The queue bound is
// the backpressure point: when downstream inference is saturated, Submit
// blocks instead of letting the queue grow.
func NewPool(queueSize int, handler func(ctx context.Context, job Job)) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		handler: handler,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				if ctx.Err() != nil {
					// Cancelled between track jobs; results already
					// persisted stay valid.
					continue
				}
				p.handler(ctx, job)
			}
		}()
	}
}

// Submit queues a job, blocking when the queue is full. Returns the context
// error if the caller is cancelled while waiting.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
