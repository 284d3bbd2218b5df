package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"CropVol/internal/domain/models"
	pkgcache "CropVol/pkg/cache"
	applogger "CropVol/pkg/logger"
	"CropVol/pkg/queue"
)

// RefitJobType is the queue message type of a dataset refit.
const RefitJobType = "refit_dataset"

// JobQueue accepts work for background processing.
type JobQueue interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

type refitPayload struct {
	JobID   string `json:"job_id"`
	Dataset string `json:"dataset"`
}

// JobTracker persists job status in the cache so any replica can answer.
type JobTracker struct {
	store pkgcache.Service
	ttl   time.Duration
}

func NewJobTracker(store pkgcache.Service, ttl time.Duration) *JobTracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobTracker{store: store, ttl: ttl}
}

func (t *JobTracker) Save(ctx context.Context, st *models.JobStatus) error {
	st.UpdatedAt = time.Now().UTC()
	return t.store.Set(ctx, pkgcache.GenerateKey("job", st.ID), st, t.ttl)
}

// Get returns the job or a *models.DataAvailabilityError once it is unknown or expired.
func (t *JobTracker) Get(ctx context.Context, id string) (*models.JobStatus, error) {
	var st models.JobStatus
	if err := t.store.Get(ctx, pkgcache.GenerateKey("job", id), &st); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, &models.DataAvailabilityError{Resource: fmt.Sprintf("job %q", id)}
		}
		return nil, err
	}
	return &st, nil
}

// RefitJob refits every region of a dataset, discarding memoized fits.
type RefitJob struct {
	pipeline *VolatilityPipeline
	tracker  *JobTracker
	log      *applogger.Logger
}

func NewRefitJob(p *VolatilityPipeline, t *JobTracker, log *applogger.Logger) *RefitJob {
	if log == nil {
		log = applogger.Nop()
	}
	return &RefitJob{pipeline: p, tracker: t, log: log}
}

func (j *RefitJob) Name() string { return "dataset refit" }
func (j *RefitJob) Type() string { return RefitJobType }

func (j *RefitJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[refitPayload](payload)
	if err != nil {
		return err
	}
	st, err := j.tracker.Get(ctx, p.JobID)
	if err != nil {
		st = &models.JobStatus{ID: p.JobID, Dataset: p.Dataset, EnqueuedAt: time.Now().UTC()}
	}
	st.State = models.JobRunning
	st.Attempts++
	j.save(ctx, st)

	rep, err := j.pipeline.AnalyzeAll(ctx, p.Dataset, true)
	if err != nil {
		st.State = models.JobFailed
		st.Error = err.Error()
		j.save(ctx, st)
		return fmt.Errorf("refit %s: %w", p.Dataset, err)
	}
	st.State = models.JobSucceeded
	st.Error = ""
	st.RunID = rep.RunID
	st.Regions = len(rep.Regions)
	st.Failed = rep.Failed()
	j.save(ctx, st)
	return nil
}

func (j *RefitJob) save(ctx context.Context, st *models.JobStatus) {
	if err := j.tracker.Save(context.WithoutCancel(ctx), st); err != nil {
		j.log.Warn("job status save failed", applogger.String("job_id", st.ID), applogger.Error(err))
	}
}

// Refits submits and looks up background dataset refits.
type Refits struct {
	catalog *Catalog
	queue   JobQueue
	tracker *JobTracker
}

func NewRefits(p *VolatilityPipeline, q JobQueue, t *JobTracker) *Refits {
	return &Refits{catalog: p.catalog, queue: q, tracker: t}
}

// Submit validates the dataset, records the job as queued and enqueues it.
func (r *Refits) Submit(ctx context.Context, dataset string) (*models.JobStatus, error) {
	if _, err := r.catalog.Get(dataset); err != nil {
		return nil, err
	}
	st := &models.JobStatus{
		ID:         uuid.NewString(),
		Dataset:    dataset,
		State:      models.JobQueued,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := r.tracker.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	if _, err := r.queue.Enqueue(ctx, RefitJobType, refitPayload{JobID: st.ID, Dataset: dataset}); err != nil {
		st.State = models.JobFailed
		st.Error = err.Error()
		_ = r.tracker.Save(ctx, st)
		return nil, fmt.Errorf("enqueue refit: %w", err)
	}
	return st, nil
}

func (r *Refits) Status(ctx context.Context, id string) (*models.JobStatus, error) {
	return r.tracker.Get(ctx, id)
}

var _ queue.Job = (*RefitJob)(nil)
