package pipeline

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Service names used in ServiceError and log fields.
const (
	ServiceRegistry = "nppes"
	ServiceText     = "anthropic"
)

// ErrEmptyBatch is returned when a batch has no records to process or
// summarize.
var ErrEmptyBatch = eris.New("pipeline: empty batch")

// ServiceError records a degraded external service. Stages never return it
// to their caller; it is logged and kept on the stage result so callers can
// tell a fallback value from a real one.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// FormatError describes a malformed identifier or phone number.
type FormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return e.Reason
}
