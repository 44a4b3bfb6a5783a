package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is against any error returned by Run or
// recorded on a RunResult.
var (
	ErrFetch           = errors.New("fetch error")
	ErrValidation      = errors.New("validation error")
	ErrThresholdLookup = errors.New("threshold lookup error")
	ErrNotification    = errors.New("notification error")
	ErrWrite           = errors.New("write error")
	ErrConfig          = errors.New("config error")
	ErrGate            = errors.New("alert branch error") // panic outside a gate step
)

// StageError tags a step failure with its kind.
type StageError struct {
	Kind error
	Op   string
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stageErr(kind error, op string, err error) error {
	return &StageError{Kind: kind, Op: op, Err: err}
}

// fatalToRun reports whether a gate error must surface as the run's error.
// Only a missing credential does; lookup and delivery failures stay local
// to the alert branch.
func fatalToRun(err error) bool {
	return errors.Is(err, ErrConfig)
}
