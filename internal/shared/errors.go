package shared

import "errors"

// Error kinds. Module errors wrap exactly one of these so callers can branch
// with errors.Is regardless of which module produced the failure.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConsistency marks input that is well formed but internally contradictory.
	ErrConsistency = errors.New("consistency check failed")
	// ErrStorage marks a failed repository call.
	ErrStorage = errors.New("storage failure")
	// ErrConcurrency marks a write that lost a race against another writer.
	ErrConcurrency = errors.New("concurrent modification")
)

// Kinds lists every error kind in matching priority order.
var Kinds = []error{ErrValidation, ErrNotFound, ErrConsistency, ErrConcurrency, ErrStorage}

// KindOf returns the taxonomy kind carried by err, or nil when err has none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range Kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
