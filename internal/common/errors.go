package common

import "errors"

// Semantic error kinds shared across services. Components wrap these with
// fmt.Errorf("...: %w", ErrX) rather than defining their own sentinel per
// call site, so callers can test with errors.Is regardless of which layer
// produced the error. The storage package defines its own ErrNotFound for
// missing objects; storage errors are not wrapped around the one here.
var (
	// ErrNotFound indicates a requested object does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrParse indicates a malformed filename, timestamp, or payload.
	ErrParse = errors.New("parse error")
	// ErrConfig indicates invalid or incomplete configuration.
	ErrConfig = errors.New("configuration error")
	// ErrWorkflowPartial indicates a workflow completed but skipped or
	// failed on a subset of its inputs; callers should inspect the
	// returned report rather than treat the run as having failed outright.
	ErrWorkflowPartial = errors.New("workflow completed with errors")
)
