package observable

import (
	"errors"
	"fmt"
)

// Sentinel errors for model lifecycle.
var (
	// ErrNoPersister indicates Destroy was asked to wait without a Persister.
	// The model is destroyed immediately instead.
	ErrNoPersister = errors.New("wait requested without a persister")

	// ErrDefinitionNotFound indicates a Catalog lookup for an unknown name.
	ErrDefinitionNotFound = errors.New("definition not found")

	// ErrInvalidDefinition indicates a definition document that cannot be used.
	ErrInvalidDefinition = errors.New("invalid definition")
)

// errMutationAborted marks the span of a mutation cut short by a panicking handler.
var errMutationAborted = errors.New("mutation aborted")

// ValidationError wraps the error returned by a Definition's validator.
// It is stored on the model and delivered with the "invalid" event.
type ValidationError struct {
	Kind string // Definition name
	CID  string // Client id of the model that rejected the update
	Err  error  // Validator result
}

// Error implements error interface.
func (e *ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("model %s: invalid: %v", e.CID, e.Err)
	}
	return fmt.Sprintf("%s %s: invalid: %v", e.Kind, e.CID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// PersistError wraps a failure reported by a Persister.
type PersistError struct {
	Op  string // Persister operation, e.g. "destroy"
	CID string
	Err error
}

// Error implements error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("%s model %s: %v", e.Op, e.CID, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistError) Unwrap() error {
	return e.Err
}
