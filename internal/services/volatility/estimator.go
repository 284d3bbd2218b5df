package volatility

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"

	"CropVol/internal/domain/models"
	domsvc "CropVol/internal/domain/service"
)

// ModelName identifies the fitted model in reports.
const ModelName = "Constant Mean - EGARCH(1,1,1) - Normal"

// MinObservations is the shortest return series the estimator accepts.
const MinObservations = 3

// startKeptStatus is appended to FitReport.Status when the optimizer result was
// worse than the best starting point and the starting point was reported instead.
const startKeptStatus = "StartingValuesKept"

// Option configures Estimator.
type Option func(*Estimator)

// Estimator fits a constant-mean EGARCH(1,1,1) model with Gaussian innovations by
// maximum likelihood, using a Nelder-Mead simplex from a fixed starting grid.
// Fits are deterministic for a given input and gonum version.
type Estimator struct {
	maxIterations   int
	tolerance       float64
	stallIterations int
	strict          bool
}

// New creates an Estimator.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		maxIterations:   2000,
		tolerance:       1e-9,
		stallIterations: 100,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithMaxIterations caps the number of simplex iterations.
func WithMaxIterations(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithTolerance sets the absolute/relative likelihood improvement below which
// the fit counts as converged once it has stalled for stall iterations.
func WithTolerance(tol float64, stall int) Option {
	return func(e *Estimator) {
		if tol > 0 {
			e.tolerance = tol
		}
		if stall > 0 {
			e.stallIterations = stall
		}
	}
}

// WithStrictConvergence turns a non-converged fit into a ConvergenceError.
func WithStrictConvergence(strict bool) Option {
	return func(e *Estimator) {
		e.strict = strict
	}
}

// Fit estimates the model on rs and returns the conditional volatility path.
// A non-converged fit still returns the path; the report carries the warning,
// and in strict mode a *models.ConvergenceError is returned alongside it.
func (e *Estimator) Fit(ctx context.Context, rs models.ReturnSeries) (models.VolatilitySeries, error) {
	n := len(rs.Values)
	if n < MinObservations {
		return models.VolatilitySeries{}, &models.InsufficientDataError{Region: rs.Region, Have: n, Need: MinObservations}
	}
	if len(rs.Dates) != n {
		return models.VolatilitySeries{}, fmt.Errorf("return series %q: %d dates for %d values", rs.Region, len(rs.Dates), n)
	}
	for i, v := range rs.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.VolatilitySeries{}, &models.DomainError{Region: rs.Region, Index: i, Value: v, Reason: "return must be finite"}
		}
	}

	p := newProblem(rs.Values)
	x0, startLL := p.startingValues()

	prob := optimize.Problem{
		Func: p.objective,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		MajorIterations: e.maxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   e.tolerance,
			Relative:   e.tolerance,
			Iterations: e.stallIterations,
		},
	}

	res, err := optimize.Minimize(prob, x0, settings, &optimize.NelderMead{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.VolatilitySeries{}, fmt.Errorf("egarch fit %q: %w", rs.Region, ctxErr)
	}
	if res == nil {
		return models.VolatilitySeries{}, fmt.Errorf("egarch fit %q: %w", rs.Region, err)
	}

	params, ll, keptStart := p.best(res.X, x0, startLL)

	report := models.FitReport{
		Model:           ModelName,
		Converged:       converged(res.Status),
		Status:          res.Status.String(),
		LogLikelihood:   ll,
		Iterations:      res.Stats.MajorIterations,
		FuncEvaluations: res.Stats.FuncEvaluations,
		NObs:            n,
		Params:          params,
		AIC:             2*numParams - 2*ll,
		BIC:             numParams*math.Log(float64(n)) - 2*ll,
	}

	sigma2 := p.variance(params)
	drop := 0
	for drop < n && !finite(sigma2[drop]) {
		drop++
	}
	out := models.VolatilitySeries{
		Dataset: rs.Dataset,
		Region:  rs.Region,
		Dates:   make([]time.Time, n-drop),
		Values:  make([]float64, n-drop),
	}
	copy(out.Dates, rs.Dates[drop:])
	for i := drop; i < n; i++ {
		out.Values[i-drop] = math.Sqrt(sigma2[i])
	}

	if keptStart {
		report.Status += "; " + startKeptStatus
	}
	if !report.Converged {
		cerr := &models.ConvergenceError{Region: rs.Region, Status: report.Status, Iterations: report.Iterations}
		report.Warning = cerr.Error()
		out.Fit = report
		if e.strict {
			return out, cerr
		}
		return out, nil
	}
	if keptStart {
		report.Warning = "simplex did not improve on the starting grid; reporting the grid point"
	}
	out.Fit = report
	return out, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var _ domsvc.VolatilityEstimator = (*Estimator)(nil)
