// internal/utils/errors.go
package utils

import (
	"errors"
	"fmt"
	"time"
)

// SelectorError reports an invalid CSS selector supplied by the operator.
// It is surfaced as a transient notification and never aborts an in-flight
// run.
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error { return e.Err }

// NavigationTimeout reports a page that never reached load-complete within
// the configured timeout. The affected URL is skipped and the run continues.
type NavigationTimeout struct {
	URL     string
	Timeout time.Duration
}

func (e *NavigationTimeout) Error() string {
	return fmt.Sprintf("navigation to %s timed out after %s", e.URL, e.Timeout)
}

// StorageError wraps a failed durable-store operation. Non-fatal: in-memory
// state remains the source of truth for the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsNavigationTimeout reports whether err is a NavigationTimeout anywhere in
// its chain.
func IsNavigationTimeout(err error) bool {
	var nt *NavigationTimeout
	return errors.As(err, &nt)
}
