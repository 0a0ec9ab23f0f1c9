package recorder

import "fmt"

// MalformedEventError reports a notification that lacks the fields needed
// to build a record. It is returned before any store write is attempted.
type MalformedEventError struct {
	Field  string
	Reason string
}

func (e *MalformedEventError) Error() string {
	if e.Field == "" {
		return "malformed event: " + e.Reason
	}
	return fmt.Sprintf("malformed event: %s: %s", e.Field, e.Reason)
}

func malformed(field, reason string) *MalformedEventError {
	return &MalformedEventError{Field: field, Reason: reason}
}

// StoreWriteError wraps a failed upsert. Retrying the same event is safe.
type StoreWriteError struct {
	ID  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %s: %v", e.ID, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}
