package query

import (
	"context"
	"time"
)

// EvaluationEventType names a point in the life of one evaluation.
type EvaluationEventType string

const (
	EvaluateStart   EvaluationEventType = "evaluate:start"
	EvaluateSuccess EvaluationEventType = "evaluate:success"
	EvaluateFailed  EvaluationEventType = "evaluate:failed"
)

// EvaluationEvent is published on the evaluator's event bus.
type EvaluationEvent struct {
	Type      EvaluationEventType `json:"type"`
	RunID     string              `json:"runId"`              // Shared by the events of one evaluation.
	Timestamp int64               `json:"timestamp"`          // Unix milliseconds.
	Plan      string              `json:"plan"`               // The Explain rendering of the evaluated plan.
	Rows      int                 `json:"rows"`               // Output row count, set on success.
	Error     *string             `json:"error,omitempty"`    // Set on failure.
	Duration  *int64              `json:"duration,omitempty"` // Milliseconds since start; nil on the start event.
}

// EventCallback receives evaluation events.
type EventCallback func(ctx context.Context, event EvaluationEvent) error

func createEvent(eventType EvaluationEventType, runID, plan string, rows int, err error, startTime time.Time) EvaluationEvent {
	var duration *int64
	if eventType != EvaluateStart {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}

	var errStr *string
	if err != nil {
		s := err.Error()
		errStr = &s
	}

	return EvaluationEvent{
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now().UnixMilli(),
		Plan:      plan,
		Rows:      rows,
		Error:     errStr,
		Duration:  duration,
	}
}
