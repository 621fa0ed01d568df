package service

import "errors"

// Sentinel errors for the query taxonomy. Callers use errors.Is to classify
// a *QueryError.
var (
	// ErrNotFound means a stop name, bus ID, or bus name has no match.
	ErrNotFound = errors.New("not found")

	// ErrPersistence means the store did not record a write.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidLocation means a GPS fix lies outside WGS-84 bounds.
	ErrInvalidLocation = errors.New("invalid location")
)

// QueryError is a domain failure that should reach the caller as a
// human-readable message rather than as an internal error.
type QueryError struct {
	Op      string
	Message string
	Err     error
}

func (e *QueryError) Error() string { return e.Message }

func (e *QueryError) Unwrap() error { return e.Err }

func notFound(op, message string) *QueryError {
	return &QueryError{Op: op, Message: message, Err: ErrNotFound}
}

// outcome maps an engine error to a metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidLocation):
		return OutcomeInvalid
	case errors.Is(err, ErrPersistence):
		return OutcomePersistence
	default:
		return OutcomeError
	}
}
