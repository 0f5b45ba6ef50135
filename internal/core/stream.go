package core

import (
	"context"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
)

// Event is a single item of a watch stream. It is either a decoded
// change event (Type and Object set) or, when Err is non-nil, a
// frame-level failure surfaced in order with the events around it.
// Error events from the server itself arrive as Type watch.Error with
// a *metav1.Status object, not via Err.
type Event struct {
	Type   watch.EventType
	Object runtime.Object
	Err    error
}

// Stream is an ordered, single-pass sequence of watch events,
// consumed by pulling: nothing downstream happens to an event until
// the caller asks for it. Events preserve server delivery order.
type Stream interface {
	// Next blocks until the next event is available and returns it.
	// It returns false when the stream has ended (server closed it or
	// Stop was called) or the context is done.
	Next(ctx context.Context) (Event, bool)
	// Stop terminates the stream. Subsequent Next calls drain out and
	// return false. Safe to call more than once.
	Stop()
}

// interceptedStream hands every event to an observer before returning
// it from Next. Because the stage is pull-driven, the observer for
// event N+1 cannot run until the caller asks for event N+1: side
// effects (resume-token updates) are coupled to the yield per item,
// never run ahead of it. Events are returned unchanged.
type interceptedStream struct {
	inner   Stream
	observe func(Event)
}

func newInterceptedStream(inner Stream, observe func(Event)) *interceptedStream {
	return &interceptedStream{
		inner:   inner,
		observe: observe,
	}
}

func (s *interceptedStream) Next(ctx context.Context) (Event, bool) {
	ev, ok := s.inner.Next(ctx)
	if !ok {
		return Event{}, false
	}

	s.observe(ev)
	return ev, true
}

func (s *interceptedStream) Stop() {
	s.inner.Stop()
}
