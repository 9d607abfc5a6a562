package fault

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across pipeline stages and stores.
var (
	// ErrStationNotFound is returned when a station ID does not resolve.
	ErrStationNotFound = errors.New("station not found")
	// ErrConnectorNotFound is returned when a connector ID does not resolve.
	ErrConnectorNotFound = errors.New("connector not found")
	// ErrNoConnector is returned when no available connector exists at the
	// target station, including when a concurrent run took the last one.
	ErrNoConnector = errors.New("no available connector")
)

// ValidationError marks bad or missing request input. Fatal to the run, no
// partial plan is produced.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks an unknown station or connector. Fatal to the run.
type NotFoundError struct {
	Kind string
	ID   string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ConflictError marks a connector lost to a concurrent run. Fatal to the
// run; the pipeline never retries it internally.
type ConflictError struct {
	ConnectorID string
	Err         error
}

func (e *ConflictError) Error() string {
	if e.ConnectorID != "" {
		return fmt.Sprintf("connector %s: %v", e.ConnectorID, e.Err)
	}
	return e.Err.Error()
}

func (e *ConflictError) Unwrap() error { return e.Err }

// UpstreamUnavailable marks a failed optional collaborator (route service or
// summary backend). It is the only error class absorbed inside the pipeline:
// stages recover via their deterministic fallback and never surface it.
type UpstreamUnavailable struct {
	Upstream string
	Err      error
}

func (e *UpstreamUnavailable) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Upstream, e.Err)
}

func (e *UpstreamUnavailable) Unwrap() error { return e.Err }

// SchemaViolation marks an assembled plan that failed final validation. It
// indicates a defect in an earlier stage, not a caller mistake, and is
// logged distinctly.
type SchemaViolation struct {
	Err error
}

func (e *SchemaViolation) Error() string { return fmt.Sprintf("plan schema violation: %v", e.Err) }

func (e *SchemaViolation) Unwrap() error { return e.Err }

// IsValidation reports whether err is caller-caused bad input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is an unknown station or connector.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) ||
		errors.Is(err, ErrStationNotFound) || errors.Is(err, ErrConnectorNotFound)
}

// IsConflict reports whether err is a lost connector race.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) || errors.Is(err, ErrNoConnector)
}

// IsSchemaViolation reports whether err is a plan validation defect.
func IsSchemaViolation(err error) bool {
	var sv *SchemaViolation
	return errors.As(err, &sv)
}
