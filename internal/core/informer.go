// Package core implements the resumable watch session: a state machine
// that opens long-lived watch streams against a resource collection,
// tracks the resourceVersion to resume from across stream drops, and
// recovers from expired watch history.
package core

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/utils/clock"
)

// InitialResourceVersion is the sentinel resume token. A watch opened
// at this version starts from a snapshot of current state rather than
// a precise point in history.
const InitialResourceVersion = "0"

// DefaultRecoveryBackoff is the fixed interval a Poll waits before
// redialing when the previous attempt ended in a retry or resync.
const DefaultRecoveryBackoff = 10 * time.Second

// WatchRepo opens a single watch stream for a target, starting at the
// given resourceVersion. A connection-level failure must be returned
// as an error rather than as a silently empty stream.
type WatchRepo interface {
	Watch(ctx context.Context, target WatchTarget, resourceVersion string) (Stream, error)
}

// Informer is a long-lived watch session over one target. It keeps the
// last observed resourceVersion across repeated Poll calls, so each
// new stream resumes where the previous one ended, and it transparently
// recovers when the server reports that the stored version is too old.
//
// Contract: call Poll, drain the returned stream until it closes, then
// call Poll again, forever. Only one returned stream may be consumed at
// a time. Version may be called concurrently from anywhere.
type Informer struct {
	repo    WatchRepo
	target  WatchTarget
	backoff time.Duration
	clock   clock.Clock
	log     *slog.Logger

	// mu guards the resume token and the recovery flags, the only
	// shared mutable state of a session. It is never held across the
	// backoff wait or the network call.
	mu          sync.Mutex
	version     string
	needsResync bool
	needsRetry  bool
}

// InformerOption configures an Informer at construction time.
type InformerOption func(*Informer)

// WithRecoveryBackoff overrides the fixed wait before a retried or
// resynced Poll.
func WithRecoveryBackoff(d time.Duration) InformerOption {
	return func(i *Informer) {
		i.backoff = d
	}
}

// WithClock substitutes the clock used for the recovery backoff.
func WithClock(c clock.Clock) InformerOption {
	return func(i *Informer) {
		i.clock = c
	}
}

// WithLogger sets the logger for stream-level conditions.
func WithLogger(log *slog.Logger) InformerOption {
	return func(i *Informer) {
		i.log = log
	}
}

// NewInformer returns a session starting from the current-state
// snapshot, with no recovery pending.
func NewInformer(repo WatchRepo, target WatchTarget, opts ...InformerOption) *Informer {
	i := &Informer{
		repo:    repo,
		target:  target,
		backoff: DefaultRecoveryBackoff,
		clock:   clock.RealClock{},
		log:     slog.Default().With("component", "informer"),
		version: InitialResourceVersion,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// InitFromVersion overrides the resume token of a freshly constructed
// session, typically with a version persisted by a previous run. It
// must be called before the first Poll; calling it while a stream is
// being consumed is outside the contract.
func (i *Informer) InitFromVersion(v string) *Informer {
	i.log.Info("restoring watch position", "target", i.target.String(), "resourceVersion", v)

	i.mu.Lock()
	i.version = v
	i.mu.Unlock()

	return i
}

// Poll opens one watch stream and returns it with resume-token
// tracking attached. When the call ends, call it again; the informer
// handles recovery across calls:
//
//   - if the previous stream reported expired history (410 Gone), this
//     call waits the recovery backoff and restarts from current state
//   - if the previous open failed, this call waits the recovery
//     backoff and reuses the same resourceVersion
//
// A connection-level open failure is returned as *ErrWatchOpen; the
// resume token is untouched by it. Everything else flows through the
// returned stream as events.
func (i *Informer) Poll(ctx context.Context) (Stream, error) {
	i.mu.Lock()
	pending := i.needsResync || i.needsRetry
	i.mu.Unlock()

	if pending {
		// Wait outside the mutex so Version stays readable. The
		// single-consumer contract means no stream is mutating the
		// flags concurrently with this call.
		select {
		case <-i.clock.After(i.backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		i.mu.Lock()
		if i.needsResync {
			// Out of history: start over from latest. Consumers will
			// see Added events again for objects they already know.
			i.version = InitialResourceVersion
		}
		i.needsResync = false
		i.needsRetry = false
		i.mu.Unlock()
	}

	i.mu.Lock()
	resourceVersion := i.version
	i.mu.Unlock()

	stream, err := i.repo.Watch(ctx, i.target, resourceVersion)
	if err != nil {
		i.log.Warn("watch open failed", "target", i.target.String(), "resourceVersion", resourceVersion, "error", err)

		// Try again later with the same version.
		i.mu.Lock()
		i.needsRetry = true
		i.mu.Unlock()

		return nil, &ErrWatchOpen{Target: i.target, Cause: err}
	}

	return newInterceptedStream(stream, i.track), nil
}

// Reset discards the resume token so the next successful watch starts
// from a snapshot of current state. Consumers must expect duplicate
// Added events for objects they have already seen.
func (i *Informer) Reset() {
	i.mu.Lock()
	i.version = InitialResourceVersion
	i.mu.Unlock()
}

// Version returns the current resume token. Safe to call while a
// stream is being drained.
func (i *Informer) Version() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.version
}

// track inspects one stream event before it is yielded, advancing the
// resume token or flagging recovery as needed. The event itself is
// never altered.
func (i *Informer) track(ev Event) {
	if ev.Err != nil {
		i.log.Warn("unexpected watch error", "target", i.target.String(), "error", ev.Err)
		return
	}

	switch ev.Type {
	case watch.Added, watch.Modified, watch.Deleted:
		acc, err := meta.Accessor(ev.Object)
		if err != nil {
			// No standard object metadata, so nothing to resume from.
			return
		}
		if v := acc.GetResourceVersion(); v != "" {
			i.mu.Lock()
			i.version = v
			i.mu.Unlock()
		}

	case watch.Error:
		if status, ok := ev.Object.(*metav1.Status); ok && status.Code == http.StatusGone {
			// 410 Gone: our version fell out of history. Restart from
			// latest on the next Poll. The server closes the stream
			// itself shortly after.
			i.log.Warn("watch history expired", "target", i.target.String(), "message", status.Message)

			i.mu.Lock()
			i.needsResync = true
			i.mu.Unlock()
			return
		}
		i.log.Warn("watch error event", "target", i.target.String())

	case watch.Bookmark:
		// Forwarded for observation only; bookmarks do not advance the
		// resume token.
	}
}
