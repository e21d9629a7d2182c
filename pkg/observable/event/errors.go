package event

import "fmt"

// SubscriptionError reports a Source that refused a subscription during
// ListenTo. The listening relationship has already been rolled back.
type SubscriptionError struct {
	Source Source // The source that failed
	Names  string // Event names being subscribed
	Err    error  // Underlying error
}

// Error implements error interface.
func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("listen to %T %q: %v", e.Source, e.Names, e.Err)
}

// Unwrap returns the underlying error.
func (e *SubscriptionError) Unwrap() error {
	return e.Err
}
