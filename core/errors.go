package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoSelection       = errors.New("no point selected")
	ErrAmbiguousSeed     = errors.New("ambiguous seed record")
	ErrEngineUnavailable = errors.New("vector search engine unavailable")
	ErrEngineTimeout     = errors.New("vector search engine timed out")
	ErrSearchInFlight    = errors.New("search already in progress")
	ErrInvalidRequest    = errors.New("invalid search request")
	ErrInvalidGeometry   = errors.New("invalid geometry")
)

// SearchError tags an error with the operation that produced it.
type SearchError struct {
	Op      string
	Err     error
	Context map[string]any
}

func (e *SearchError) Error() string {
	if len(e.Context) > 0 {
		return fmt.Sprintf("%s: %v %v", e.Op, e.Err, e.Context)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

func NewSearchError(op string, err error) *SearchError {
	return &SearchError{Op: op, Err: err}
}

// Errorf wraps a sentinel with a formatted detail message so that
// errors.Is still matches the sentinel.
func Errorf(op string, sentinel error, format string, args ...any) *SearchError {
	return &SearchError{Op: op, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}

func WithContext(err *SearchError, key string, val any) *SearchError {
	if err.Context == nil {
		err.Context = make(map[string]any)
	}
	err.Context[key] = val
	return err
}

// UserMessage returns the text shown to an analyst for a failed run.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSelection):
		return "Please click the map to select a point first."
	case errors.Is(err, ErrSearchInFlight):
		return "A search is already running; wait for it to finish."
	case errors.Is(err, ErrAmbiguousSeed):
		return "Could not resolve a single index tile at the selected point."
	case errors.Is(err, ErrEngineTimeout):
		return "The vector search timed out; try again."
	case errors.Is(err, ErrEngineUnavailable):
		return "The vector search service is unavailable; try again."
	case errors.Is(err, ErrInvalidRequest):
		return "The search request is invalid."
	default:
		return "The search failed."
	}
}

// Code returns a short machine-readable status for err, used for metric
// labels, run records and API error bodies.
func Code(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoSelection):
		return "no_selection"
	case errors.Is(err, ErrSearchInFlight):
		return "in_flight"
	case errors.Is(err, ErrAmbiguousSeed):
		return "ambiguous_seed"
	case errors.Is(err, ErrEngineTimeout):
		return "timeout"
	case errors.Is(err, ErrEngineUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInvalidGeometry):
		return "invalid_geometry"
	default:
		return "error"
	}
}
