package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"CropVol/pkg/logger"
)

// MemoryQueue is an in-process queue for single-instance deployments.
// Queued work is lost on restart.
type MemoryQueue struct {
	dispatcher
	runner
	msgs chan Message
	dead atomic.Int64
}

func NewMemoryQueue(lgr *logger.Logger, config *QueueConfig) *MemoryQueue {
	q := &MemoryQueue{}
	q.init(lgr, config)
	q.msgs = make(chan Message, q.config.QueueSize)
	return q
}

func (q *MemoryQueue) Start() error {
	loops := make([]func(context.Context), q.config.Workers)
	for i := range loops {
		loops[i] = q.work
	}
	if err := q.start(loops...); err != nil {
		return err
	}
	q.logger.Info("memory queue started", logger.Int("workers", q.config.Workers))
	return nil
}

func (q *MemoryQueue) Stop(ctx context.Context) error {
	return q.stop(ctx)
}

// Enqueue fails fast when the buffer is full rather than blocking the caller.
func (q *MemoryQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	msg, err := q.prepare(msgType, payload)
	if err != nil {
		return "", err
	}
	select {
	case q.msgs <- msg:
		return msg.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	default:
		return "", fmt.Errorf("queue full (%d)", cap(q.msgs))
	}
}

// DeadLetters counts messages dropped after exhausting retries.
func (q *MemoryQueue) DeadLetters() int64 {
	return q.dead.Load()
}

func (q *MemoryQueue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q.msgs:
			switch q.dispatch(ctx, &msg) {
			case outcomeRetry:
				q.spawn(func(ctx context.Context) { q.redeliver(ctx, msg) })
			case outcomeDead:
				q.dead.Add(1)
			}
		}
	}
}

func (q *MemoryQueue) redeliver(ctx context.Context, msg Message) {
	t := time.NewTimer(q.config.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}
	select {
	case q.msgs <- msg:
	case <-ctx.Done():
	}
}

var _ Queue = (*MemoryQueue)(nil)
