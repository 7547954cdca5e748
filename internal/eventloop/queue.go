// Package eventloop serializes work onto a single goroutine.
package eventloop

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("eventloop: closed")

// Job is a unit of work run on the loop goroutine. A job must not call Do on
// the queue running it.
type Job func(ctx context.Context) error

type request struct {
	ctx  context.Context
	job  Job
	done chan error
}

// Queue runs submitted jobs strictly one at a time in arrival order.
//
// Concurrency model: one worker goroutine owns execution; callers hand it
// requests through a channel and wait on a per-request reply channel.
type Queue struct {
	jobs    chan request
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New starts a queue. backlog is the number of jobs that may wait before Do
// blocks on submission.
func New(backlog int) *Queue {
	if backlog < 0 {
		backlog = 0
	}
	q := &Queue{
		jobs:    make(chan request, backlog),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		select {
		case <-q.stopCh:
			// Finish whatever was accepted before Close.
			for {
				select {
				case req := <-q.jobs:
					q.exec(req)
				default:
					return
				}
			}
		case req := <-q.jobs:
			q.exec(req)
		}
	}
}

func (q *Queue) exec(req request) {
	if err := req.ctx.Err(); err != nil {
		req.done <- err
		return
	}
	req.done <- req.job(req.ctx)
}

// Do submits job and waits for its result. If ctx ends first Do returns
// ctx.Err(); a job already accepted still runs and sees the cancelled ctx.
func (q *Queue) Do(ctx context.Context, job Job) error {
	if q.closed.Load() {
		return ErrClosed
	}
	req := request{ctx: ctx, job: job, done: make(chan error, 1)}

	select {
	case q.jobs <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		return ErrClosed
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		// The worker replies before it exits, so a reply may already be here.
		// Otherwise the request landed in the buffer after the final drain.
		select {
		case err := <-req.done:
			return err
		default:
			return ErrClosed
		}
	}
}

// Close stops accepting work, runs the jobs already queued and waits for the
// worker to exit. It is safe to call more than once.
func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.stopCh)
	}
	<-q.stopped
}
