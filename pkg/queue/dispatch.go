package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CropVol/pkg/logger"
)

// dispatcher holds the job registry and the retry decision shared by queue backends.
type dispatcher struct {
	logger *logger.Logger
	config QueueConfig
	mu     sync.RWMutex
	jobs   map[string]Job
}

func (d *dispatcher) init(lgr *logger.Logger, config *QueueConfig) {
	if config != nil {
		d.config = *config
	}
	d.config.normalize()
	if lgr == nil {
		lgr = logger.Nop()
	}
	d.logger = lgr
	d.jobs = make(map[string]Job)
}

// RegisterJob registers a single job. Later registrations for the same type are ignored.
func (d *dispatcher) RegisterJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.jobs[job.Type()]; exists {
		d.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	d.jobs[job.Type()] = job
	d.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// prepare rejects types nobody handles and wraps payload in a new Message.
func (d *dispatcher) prepare(msgType string, payload interface{}) (Message, error) {
	if _, ok := d.job(msgType); !ok {
		return Message{}, fmt.Errorf("no job registered for type: %s", msgType)
	}
	return newMessage(msgType, payload)
}

func (d *dispatcher) job(msgType string) (Job, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	j, ok := d.jobs[msgType]
	return j, ok
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDead
)

// dispatch runs msg through its job and reports what to do with it next.
// On outcomeRetry msg.Attempts has already been incremented.
func (d *dispatcher) dispatch(ctx context.Context, msg *Message) outcome {
	job, ok := d.job(msg.Type)
	if !ok {
		d.logger.Error("no job found",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return outcomeDead
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	elapsed := time.Since(start)
	if err == nil {
		d.logger.Debug("message processed",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int64("elapsed_ms", elapsed.Milliseconds()))
		return outcomeDone
	}
	if errors.Is(err, context.Canceled) {
		d.logger.Warn("message cancelled",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int64("elapsed_ms", elapsed.Milliseconds()))
		return outcomeDone
	}

	d.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts < d.config.RetryLimit {
		msg.Attempts++
		return outcomeRetry
	}
	d.logger.Error("max retries reached",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()))
	return outcomeDead
}
