package http

import (
	"fmt"
	"net/http"
)

// AppError is an API error carried in the response envelope. Status selects the
// HTTP code; Err is kept for logging and never serialized.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithParam attaches a detail, e.g. the region or observation count that failed.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError records the cause.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func newAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// DataUnavailableError is a 404 for a missing dataset, region, job or input file.
func DataUnavailableError(message string) *AppError {
	return newAppError(http.StatusNotFound, "ERR_DATA_UNAVAILABLE", message)
}

// UnprocessableError is a 422 for input the analysis cannot run on.
func UnprocessableError(code, message string) *AppError {
	return newAppError(http.StatusUnprocessableEntity, code, message)
}

// TooManyRequestsError is a 429.
func TooManyRequestsError(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, "ERR_RATE_LIMITED", message)
}

// InternalError is a 500.
func InternalError(message string) *AppError {
	return newAppError(http.StatusInternalServerError, "ERR_INTERNAL", message)
}
