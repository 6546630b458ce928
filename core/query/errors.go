package query

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProjectionExpression is returned when Select receives an
	// expression that is not a path string, an extractor function or "*".
	ErrInvalidProjectionExpression = errors.New("invalid projection expression")
	// ErrUnsupportedConditionType is returned when Where or On receives a
	// condition that is not a function of the expected shape.
	ErrUnsupportedConditionType = errors.New("unsupported condition type")
	// ErrInvalidSortDirection is returned for a direction other than
	// "ascending" or "descending".
	ErrInvalidSortDirection = errors.New("invalid sort direction")
	// ErrInvalidOrderKeySpecification is returned when an order key is not a
	// path string, an extractor or a comparator.
	ErrInvalidOrderKeySpecification = errors.New("invalid order key specification")
	// ErrInvalidPaginationArgument is returned for a negative limit or offset.
	ErrInvalidPaginationArgument = errors.New("invalid pagination argument")
	// ErrRowLimitExceeded is returned when a stage produces more rows than the
	// evaluator allows.
	ErrRowLimitExceeded = errors.New("row limit exceeded")
)

// StageError describes a malformed argument given to a pipeline stage. It
// unwraps to one of the sentinel errors above.
type StageError struct {
	Stage    NodeKind
	Position int // Index of the offending argument, or -1 when not applicable.
	Message  string
	Err      error
}

func (e *StageError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s stage: argument %d: %s: %v", e.Stage, e.Position, e.Message, e.Err)
	}
	return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage NodeKind, position int, err error, format string, args ...any) *StageError {
	return &StageError{
		Stage:    stage,
		Position: position,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
	}
}
