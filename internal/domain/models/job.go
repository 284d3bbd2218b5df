package models

import "time"

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// JobStatus tracks one background dataset refit.
type JobStatus struct {
	ID         string    `json:"id"`
	Dataset    string    `json:"dataset"`
	State      JobState  `json:"state"`
	Attempts   int       `json:"attempts"`
	RunID      string    `json:"run_id,omitempty"`
	Regions    int       `json:"regions,omitempty"`
	Failed     int       `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RefitRequest struct {
	Dataset string `query:"dataset" json:"dataset" validate:"required"`
}

type JobRequest struct {
	ID string `param:"id" json:"id" validate:"required,uuid"`
}

type HistoryRequest struct {
	Dataset string `query:"dataset" json:"dataset" validate:"required"`
	Region  string `query:"region" json:"region" validate:"required"`
	Limit   int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}
