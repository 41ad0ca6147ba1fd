package downloader

import (
	"fmt"

	"github.com/ValerySidorin/disclosure/pkg/record"
	"github.com/pkg/errors"
)

// ErrNotFound means the archive has no document for the record. It is a
// terminal answer, not a failure.
var ErrNotFound = errors.New("document not found")

// TransientError is a failed attempt that may succeed on retry. Blocked is
// set when the server refused the caller rather than the request.
type TransientError struct {
	Status  int
	Blocked bool
	Err     error
}

func (e *TransientError) Error() string {
	kind := "transient"
	if e.Blocked {
		kind = "blocked"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", kind, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PersistenceError means the document was fetched but could not be stored.
type PersistenceError struct {
	Key record.StorageKey
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func isBlocked(err error) bool {
	var te *TransientError
	return errors.As(err, &te) && te.Blocked
}

func isPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
