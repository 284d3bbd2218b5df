package models

import "time"

// EGARCHParams holds the estimated constant-mean EGARCH(1,1,1) parameters.
type EGARCHParams struct {
	Mu    float64 `json:"mu"`
	Omega float64 `json:"omega"`
	Alpha float64 `json:"alpha"`
	Gamma float64 `json:"gamma"`
	Beta  float64 `json:"beta"`
}

// FitReport describes how a volatility model fit went.
type FitReport struct {
	Model           string       `json:"model"`
	Converged       bool         `json:"converged"`
	Status          string       `json:"status"`
	LogLikelihood   float64      `json:"log_likelihood"`
	AIC             float64      `json:"aic"`
	BIC             float64      `json:"bic"`
	Iterations      int          `json:"iterations"`
	FuncEvaluations int          `json:"func_evaluations"`
	NObs            int          `json:"nobs"`
	Params          EGARCHParams `json:"params"`
	Warning         string       `json:"warning,omitempty"`
	DatasetVersion  string       `json:"dataset_version,omitempty"`
}

// FitEvent is the summary published after a fresh fit.
type FitEvent struct {
	RunID          string       `json:"run_id,omitempty"`
	Dataset        string       `json:"dataset"`
	Region         string       `json:"region"`
	DatasetVersion string       `json:"dataset_version"`
	Converged      bool         `json:"converged"`
	LogLikelihood  float64      `json:"log_likelihood"`
	Iterations     int          `json:"iterations"`
	Params         EGARCHParams `json:"params"`
	LastSigma      float64      `json:"last_sigma"`
	DurationMillis int64        `json:"duration_ms"`
	FittedAt       time.Time    `json:"fitted_at"`
}
