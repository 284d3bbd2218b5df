package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refitPayload struct {
	Dataset string `json:"dataset"`
}

type countingJob struct {
	failFirst int32
	calls     atomic.Int32
	seen      chan string
}

func (j *countingJob) Name() string { return "counting" }
func (j *countingJob) Type() string { return "refit" }

func (j *countingJob) Handle(_ context.Context, payload json.RawMessage) error {
	n := j.calls.Add(1)
	p, err := ParsePayload[refitPayload](payload)
	if err != nil {
		return err
	}
	if n <= j.failFirst {
		return errors.New("transient")
	}
	j.seen <- p.Dataset
	return nil
}

func startQueue(t *testing.T, cfg *QueueConfig, job Job) *MemoryQueue {
	t.Helper()
	q := NewMemoryQueue(nil, cfg)
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})
	return q
}

func TestMemoryQueue_Delivers(t *testing.T) {
	job := &countingJob{seen: make(chan string, 1)}
	q := startQueue(t, &QueueConfig{Workers: 2}, job)

	id, err := q.Enqueue(context.Background(), "refit", refitPayload{Dataset: "soybean-mp"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case ds := <-job.seen:
		assert.Equal(t, "soybean-mp", ds)
	case <-time.After(2 * time.Second):
		t.Fatal("job not delivered")
	}
}

func TestMemoryQueue_RetriesThenSucceeds(t *testing.T) {
	job := &countingJob{failFirst: 2, seen: make(chan string, 1)}
	q := startQueue(t, &QueueConfig{RetryLimit: 3, RetryDelay: 10 * time.Millisecond}, job)

	_, err := q.Enqueue(context.Background(), "refit", refitPayload{Dataset: "brinjal-state"})
	require.NoError(t, err)

	select {
	case <-job.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	assert.Equal(t, int32(3), job.calls.Load())
	assert.Zero(t, q.DeadLetters())
}

func TestMemoryQueue_DeadLetterAfterRetryLimit(t *testing.T) {
	job := &countingJob{failFirst: 100, seen: make(chan string, 1)}
	q := startQueue(t, &QueueConfig{RetryLimit: 1, RetryDelay: 5 * time.Millisecond}, job)

	_, err := q.Enqueue(context.Background(), "refit", refitPayload{Dataset: "x"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return q.DeadLetters() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), job.calls.Load())
}

func TestMemoryQueue_RejectsUnknownTypeAndFullBuffer(t *testing.T) {
	q := NewMemoryQueue(nil, &QueueConfig{QueueSize: 1})
	q.RegisterJob(&countingJob{seen: make(chan string, 1)})

	_, err := q.Enqueue(context.Background(), "other", nil)
	require.Error(t, err)

	// Not started: nothing drains the buffer.
	_, err = q.Enqueue(context.Background(), "refit", refitPayload{})
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), "refit", refitPayload{})
	require.Error(t, err)
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[refitPayload](json.RawMessage(`{"dataset":"soybean-mp"}`))
	require.NoError(t, err)
	assert.Equal(t, "soybean-mp", p.Dataset)

	_, err = ParsePayload[refitPayload](json.RawMessage(`{`))
	require.Error(t, err)
}

func TestMemoryQueue_StartStopLifecycle(t *testing.T) {
	q := NewMemoryQueue(nil, nil)
	require.NoError(t, q.Start())
	assert.ErrorIs(t, q.Start(), errAlreadyRunning)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
	require.NoError(t, q.Stop(ctx))

	require.NoError(t, q.Start())
	require.NoError(t, q.Stop(ctx))
}
