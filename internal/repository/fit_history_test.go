package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"CropVol/internal/domain/models"
)

const sqliteFitHistory = `CREATE TABLE fit_history (
    run_id TEXT, dataset TEXT, region TEXT, dataset_version TEXT,
    converged INTEGER, log_likelihood REAL, iterations INTEGER,
    mu REAL, omega REAL, alpha REAL, gamma REAL, beta REAL,
    last_sigma REAL, duration_ms INTEGER, fitted_at TIMESTAMP
)`

func fitEvent(region string, at time.Time, ll float64) models.FitEvent {
	return models.FitEvent{
		RunID:          "run-" + at.Format("150405"),
		Dataset:        "soybean-mp",
		Region:         region,
		DatasetVersion: "v1",
		Converged:      true,
		LogLikelihood:  ll,
		Iterations:     120,
		Params:         models.EGARCHParams{Mu: 0.001, Omega: -0.4, Alpha: 0.1, Gamma: -0.05, Beta: 0.9},
		LastSigma:      0.04,
		DurationMillis: 35,
		FittedAt:       at,
	}
}

func TestCHFitHistory_SQLPortable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(sqliteFitHistory)
	require.NoError(t, err)

	h := NewCHFitHistory(db, "fit_history")
	ctx := context.Background()
	base := time.Date(2024, time.November, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, h.SaveFit(ctx, fitEvent("Indore", base, 50)))
	require.NoError(t, h.SaveFit(ctx, fitEvent("Indore", base.Add(time.Hour), 51)))
	require.NoError(t, h.SaveFit(ctx, fitEvent("Ujjain", base, 40)))

	got, err := h.RecentFits(ctx, "soybean-mp", "Indore", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 51.0, got[0].LogLikelihood)
	assert.True(t, got[0].FittedAt.Equal(base.Add(time.Hour)))
	assert.True(t, got[0].Converged)
	assert.Equal(t, 120, got[0].Iterations)
	assert.Equal(t, 0.9, got[0].Params.Beta)

	got, err = h.RecentFits(ctx, "soybean-mp", "Indore", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryFitHistory(t *testing.T) {
	h := NewMemoryFitHistory(2)
	ctx := context.Background()
	base := time.Date(2024, time.November, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.SaveFit(ctx, fitEvent("Indore", base.Add(time.Duration(i)*time.Hour), float64(i))))
	}

	got, err := h.RecentFits(ctx, "soybean-mp", "Indore", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].LogLikelihood)
	assert.Equal(t, 1.0, got[1].LogLikelihood)

	got, err = h.RecentFits(ctx, "soybean-mp", "Dewas", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFitHistorySchema(t *testing.T) {
	stmts := FitHistorySchema("cropvol", "fit_history")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "cropvol.fit_history")
	assert.Contains(t, stmts[1], "MergeTree")
}
