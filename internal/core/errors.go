package core

import "fmt"

// ErrWatchOpen indicates that the transport could not open a watch
// stream for the given target. The informer records a pending retry
// before returning it, so the next Poll backs off first.
type ErrWatchOpen struct {
	Target WatchTarget
	Cause  error
}

func (e *ErrWatchOpen) Error() string {
	return fmt.Sprintf("open watch for %s: %v", e.Target, e.Cause)
}

func (e *ErrWatchOpen) Unwrap() error {
	return e.Cause
}
