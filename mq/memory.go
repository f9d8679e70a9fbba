package mq

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restobooker/utils"
)

// MemoryQueue is an in-process queue backed by a buffered channel and a fixed
// pool of workers. Publish never blocks: a full buffer is reported as ErrQueueFull.
type MemoryQueue struct {
	MaxAttempts int
	RetryDelay  time.Duration

	jobs      chan Job
	workers   int
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewMemoryQueue(buffer, workers int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 100
	}
	if workers <= 0 {
		workers = 1
	}
	return &MemoryQueue{
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  time.Second,
		jobs:        make(chan Job, buffer),
		workers:     workers,
		closed:      make(chan struct{}),
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, job Job) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, h Handler) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.closed:
					return
				case job := <-q.jobs:
					q.process(ctx, h, job)
				}
			}
		}()
	}
	return nil
}

func (q *MemoryQueue) process(ctx context.Context, h Handler, job Job) {
	for {
		err := h(ctx, job)
		if err == nil {
			return
		}
		job.Attempt++
		if job.Attempt >= q.MaxAttempts {
			utils.ErrorLogger.Printf("Job %s (%s, reservation %d) dropped after %d attempts: %v", job.ID, job.Kind, job.ReservationID, job.Attempt, err)
			return
		}
		utils.InfoLogger.Printf("Job %s (%s) failed, retrying: %v", job.ID, job.Kind, err)
		select {
		case <-time.After(q.RetryDelay):
		case <-ctx.Done():
			return
		case <-q.closed:
			return
		}
	}
}

// Close stops the workers and waits for in-flight jobs to finish.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.closed) })
	q.wg.Wait()
	return nil
}
