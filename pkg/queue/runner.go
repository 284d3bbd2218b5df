package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errAlreadyRunning = errors.New("queue already running")

// runner owns the goroutines of a queue backend. Every loop receives a context
// that is cancelled by stop; stop then waits for all of them.
type runner struct {
	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func (r *runner) start(loops ...func(ctx context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errAlreadyRunning
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true
	for _, loop := range loops {
		r.spawnLocked(loop)
	}
	return nil
}

// spawn runs f under the current run context. It is a no-op once stopped.
func (r *runner) spawn(f func(ctx context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.spawnLocked(f)
	}
}

func (r *runner) spawnLocked(f func(ctx context.Context)) {
	ctx := r.ctx
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		f(ctx)
	}()
}

func (r *runner) stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for queue workers: %w", ctx.Err())
	}
}
