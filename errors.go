package asidecache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/asidecache/keys"
)

var (
	// ErrMissingKeyConfiguration reports a blank key template.
	ErrMissingKeyConfiguration = keys.ErrMissingKeyConfiguration

	ErrUnsupportedResultShape = errors.New("asidecache: unsupported result shape")
	ErrUnknownPolicy          = errors.New("asidecache: unknown policy")
	ErrNilBackend             = errors.New("asidecache: nil backend")
)

// BackendError wraps a failed backend operation.
type BackendError struct {
	Op  string
	Key string
	Err error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("asidecache: backend %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("asidecache: backend %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
