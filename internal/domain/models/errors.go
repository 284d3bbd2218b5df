package models

import "fmt"

// DataAvailabilityError reports a missing input file, sheet, dataset or region column.
type DataAvailabilityError struct {
	Resource string
	Err      error
}

func (e *DataAvailabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data unavailable: %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("data unavailable: %s", e.Resource)
}

func (e *DataAvailabilityError) Unwrap() error { return e.Err }

// DomainError reports numeric input outside a transform's domain.
type DomainError struct {
	Region string
	Index  int
	Value  float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error: region %q index %d value %g: %s", e.Region, e.Index, e.Value, e.Reason)
}

// InsufficientDataError reports a series too short for the requested computation.
type InsufficientDataError struct {
	Region string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: region %q has %d observations, need at least %d", e.Region, e.Have, e.Need)
}

// ConvergenceError reports a volatility fit whose optimizer stopped without converging.
type ConvergenceError struct {
	Region     string
	Status     string
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("fit did not converge: region %q status %s after %d iterations", e.Region, e.Status, e.Iterations)
}

// InsufficientHistoryError reports a forecast longer than the volatility history it aligns to.
type InsufficientHistoryError struct {
	Region   string
	Forecast string
	K        int
	M        int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: forecast %q for region %q has %d points, volatility series has %d",
		e.Forecast, e.Region, e.K, e.M)
}
