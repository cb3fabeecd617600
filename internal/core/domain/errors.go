package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCapacity  = errors.New("capacity must be positive")
	ErrInvalidThreshold = errors.New("threshold must be within [0,1]")
	ErrInvalidPeriod    = errors.New("stats period must be positive")
	ErrInvalidPolicy    = errors.New("unknown aggregation policy")

	ErrSinkUnavailable  = errors.New("stats sink unavailable")
	ErrUnknownMonitor   = errors.New("monitor unreachable")
	ErrControllerClosed = errors.New("controller is shut down")
	ErrVerdictNotFound  = errors.New("verdict not found")
)

// ConfigError is a fatal construction-time configuration problem.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err for field.
func NewConfigError(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
