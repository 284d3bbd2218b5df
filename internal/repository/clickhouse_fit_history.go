package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CropVol/internal/domain/models"
	domrepo "CropVol/internal/domain/repository"
	applogger "CropVol/pkg/logger"
)

// FitHistorySchema returns the ClickHouse DDL for the fit history table.
func FitHistorySchema(database, table string) []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS " + database,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            run_id String,
            dataset LowCardinality(String),
            region LowCardinality(String),
            dataset_version String,
            converged UInt8,
            log_likelihood Float64,
            iterations Int32,
            mu Float64,
            omega Float64,
            alpha Float64,
            gamma Float64,
            beta Float64,
            last_sigma Float64,
            duration_ms Int64,
            fitted_at DateTime64(3, 'UTC')
        ) ENGINE = MergeTree ORDER BY (dataset, region, fitted_at)`, database, table),
	}
}

// CHFitHistory implements FitHistory backed by ClickHouse. The queries stick to
// plain positional SQL so any database/sql driver with the same table works.
type CHFitHistory struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHFitHistory(db *sql.DB, table string) *CHFitHistory {
	return &CHFitHistory{db: db, table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHFitHistory) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHFitHistory) SaveFit(ctx context.Context, ev models.FitEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s
        (run_id, dataset, region, dataset_version, converged, log_likelihood, iterations,
         mu, omega, alpha, gamma, beta, last_sigma, duration_ms, fitted_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	converged := uint8(0)
	if ev.Converged {
		converged = 1
	}
	fittedAt := ev.FittedAt
	if fittedAt.IsZero() {
		fittedAt = time.Now()
	}
	p := ev.Params
	_, err := s.db.ExecContext(ctx, q,
		ev.RunID, ev.Dataset, ev.Region, ev.DatasetVersion, converged, ev.LogLikelihood, int32(ev.Iterations),
		p.Mu, p.Omega, p.Alpha, p.Gamma, p.Beta, ev.LastSigma, ev.DurationMillis, fittedAt.UTC(),
	)
	if err != nil {
		s.l.Error("clickhouse save_fit error",
			applogger.String("table", s.table),
			applogger.String("dataset", ev.Dataset),
			applogger.String("region", ev.Region),
			applogger.Error(err),
		)
		return fmt.Errorf("save fit: %w", err)
	}
	return nil
}

func (s *CHFitHistory) RecentFits(ctx context.Context, dataset, region string, limit int) ([]models.FitEvent, error) {
	const qtpl = `
        SELECT run_id, dataset, region, dataset_version, converged, log_likelihood, iterations,
               mu, omega, alpha, gamma, beta, last_sigma, duration_ms, fitted_at
        FROM %s
        WHERE dataset = ? AND region = ?
        ORDER BY fitted_at DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), dataset, region, limit)
	if err != nil {
		s.l.Error("clickhouse recent_fits query error",
			applogger.String("table", s.table),
			applogger.String("region", region),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("recent fits: %w", err)
	}
	defer rows.Close()

	out := make([]models.FitEvent, 0, limit)
	for rows.Next() {
		var (
			ev        models.FitEvent
			converged uint8
			iters     int32
		)
		if err := rows.Scan(&ev.RunID, &ev.Dataset, &ev.Region, &ev.DatasetVersion, &converged, &ev.LogLikelihood, &iters,
			&ev.Params.Mu, &ev.Params.Omega, &ev.Params.Alpha, &ev.Params.Gamma, &ev.Params.Beta,
			&ev.LastSigma, &ev.DurationMillis, &ev.FittedAt); err != nil {
			return nil, fmt.Errorf("scan fit: %w", err)
		}
		ev.Converged = converged == 1
		ev.Iterations = int(iters)
		ev.FittedAt = ev.FittedAt.UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var _ domrepo.FitHistory = (*CHFitHistory)(nil)
