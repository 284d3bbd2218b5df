package api

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "CropVol/internal/domain/models"
    internalrepo "CropVol/internal/repository"
    "CropVol/internal/usecase"
    pkgcache "CropVol/pkg/cache"
    xlogger "CropVol/pkg/logger"
    "CropVol/pkg/queue"
)

func newJobsServer(t *testing.T) *echo.Echo {
    t.Helper()
    pipeline := testPipeline(t, usecase.WithHistory(internalrepo.NewMemoryFitHistory(10)))

    store := pkgcache.NewMemoryCache()
    t.Cleanup(func() { _ = store.Close() })
    tracker := usecase.NewJobTracker(store, time.Hour)
    q := queue.NewMemoryQueue(nil, &queue.QueueConfig{Workers: 1})
    q.RegisterJob(usecase.NewRefitJob(pipeline, tracker, nil))
    require.NoError(t, q.Start())
    t.Cleanup(func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = q.Stop(ctx)
    })

    e := echo.New()
    NewVolatilityEchoHandler(xlogger.Nop(), pipeline, nil, usecase.NewRefits(pipeline, q, tracker)).RegisterRoutes(e)
    return e
}

func postJSON(t *testing.T, e *echo.Echo, target, body string) (*httptest.ResponseRecorder, envelope) {
    t.Helper()
    req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    var env envelope
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
    return rec, env
}

func TestRefitJobLifecycle(t *testing.T) {
    e := newJobsServer(t)

    rec, env := postJSON(t, e, "/api/jobs/refit", `{"dataset":"soybean-mp"}`)
    require.Equal(t, http.StatusAccepted, rec.Code)
    var st models.JobStatus
    require.NoError(t, json.Unmarshal(env.Data, &st))
    assert.Equal(t, models.JobQueued, st.State)

    require.Eventually(t, func() bool {
        rec, env := get(t, e, "/api/jobs/"+st.ID)
        if rec.Code != http.StatusOK {
            return false
        }
        var cur models.JobStatus
        return json.Unmarshal(env.Data, &cur) == nil && cur.State == models.JobSucceeded
    }, 10*time.Second, 20*time.Millisecond)

    rec, env = get(t, e, "/api/history?dataset=soybean-mp&region=Indore")
    require.Equal(t, http.StatusOK, rec.Code)
    var fits []models.FitEvent
    require.NoError(t, json.Unmarshal(env.Data, &fits))
    assert.Len(t, fits, 1)
}

func TestRefitJobValidation(t *testing.T) {
    e := newJobsServer(t)

    rec, _ := postJSON(t, e, "/api/jobs/refit", `{}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec, _ = postJSON(t, e, "/api/jobs/refit", `{"dataset":"wheat"}`)
    assert.Equal(t, http.StatusNotFound, rec.Code)

    rec, _ = get(t, e, "/api/jobs/not-a-uuid")
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec, _ = get(t, e, "/api/jobs/00000000-0000-0000-0000-000000000000")
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryWithoutFits(t *testing.T) {
    e := newJobsServer(t)

    rec, env := get(t, e, "/api/history?dataset=soybean-mp&region=Dewas&limit=5")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `[]`, string(env.Data))

    rec, _ = get(t, e, "/api/history?dataset=soybean-mp&region=Indore&limit=1000")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}
