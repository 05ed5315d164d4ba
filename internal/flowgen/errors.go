package flowgen

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("invalid simulation config")
	ErrArithmetic       = errors.New("arithmetic error")
	ErrAlreadyGenerated = errors.New("generator already produced its series")
)

// ConfigError reports a parameter combination rejected before any sample is produced.
type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func configErrorf(field string, value float64, format string, args ...any) *ConfigError {
	reason := fmt.Sprintf(format, args...) + fmt.Sprintf(" (got %g)", value)
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// ArithmeticError aborts a run part way through. It carries the step that failed
// and wraps both ErrArithmetic and the underlying hydraulics error.
type ArithmeticError struct {
	Step     int
	Time     float64
	Quantity string
	Depth    float64
	Err      error
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("%s at step %d (t=%g, depth=%g): %s: %v", ErrArithmetic, e.Step, e.Time, e.Depth, e.Quantity, e.Err)
}

func (e *ArithmeticError) Unwrap() []error {
	return []error{ErrArithmetic, e.Err}
}
