package queue

import (
	"context"
	"encoding/json"
)

// Job defines a queue job handler.
type Job interface {
	// Name returns a human readable identifier used in logs.
	Name() string

	// Type returns the message type the job handles.
	Type() string

	// Handle processes one message payload. A returned error schedules a
	// retry until the retry limit is reached.
	Handle(ctx context.Context, payload json.RawMessage) error
}
