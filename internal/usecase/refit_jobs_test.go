package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CropVol/internal/domain/models"
	pkgcache "CropVol/pkg/cache"
	"CropVol/pkg/queue"
)

func newRefits(t *testing.T, pub *recordingPublisher) (*Refits, *JobTracker) {
	t.Helper()
	p := newTestPipeline(t, pub)
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	tracker := NewJobTracker(store, time.Hour)

	q := queue.NewMemoryQueue(nil, &queue.QueueConfig{Workers: 1})
	q.RegisterJob(NewRefitJob(p, tracker, nil))
	require.NoError(t, q.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})
	return NewRefits(p, q, tracker), tracker
}

func TestRefits_RunsToCompletion(t *testing.T) {
	pub := &recordingPublisher{}
	r, _ := newRefits(t, pub)
	ctx := context.Background()

	st, err := r.Submit(ctx, "soybean-mp")
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, st.State)
	assert.NotEmpty(t, st.ID)

	var got *models.JobStatus
	require.Eventually(t, func() bool {
		got, err = r.Status(ctx, st.ID)
		return err == nil && got.State == models.JobSucceeded
	}, 10*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, got.Attempts)
	assert.NotEmpty(t, got.RunID)
	assert.Equal(t, len(testDataset().Regions), got.Regions)
	assert.Positive(t, pub.count())
}

func TestRefits_UnknownDatasetRejectedUpFront(t *testing.T) {
	r, _ := newRefits(t, nil)

	_, err := r.Submit(context.Background(), "wheat")
	var da *models.DataAvailabilityError
	assert.True(t, errors.As(err, &da))
}

func TestRefits_UnknownJob(t *testing.T) {
	r, _ := newRefits(t, nil)

	_, err := r.Status(context.Background(), "00000000-0000-0000-0000-000000000000")
	var da *models.DataAvailabilityError
	assert.True(t, errors.As(err, &da))
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, string, interface{}) (string, error) {
	return "", errors.New("redis down")
}

func TestRefits_EnqueueFailureMarksJobFailed(t *testing.T) {
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	tracker := NewJobTracker(store, time.Hour)
	r := NewRefits(newTestPipeline(t, nil), failingQueue{}, tracker)

	_, err := r.Submit(context.Background(), "soybean-mp")
	require.Error(t, err)
}
