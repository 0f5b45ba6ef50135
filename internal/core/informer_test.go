package core

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	clocktesting "k8s.io/utils/clock/testing"
)

var testTarget = WatchTarget{
	Resource:  schema.GroupVersionResource{Version: "v1", Resource: "pods"},
	Namespace: "default",
}

// fakeStream delivers a fixed set of events and then ends, like a
// server closing a watch.
type fakeStream struct {
	mu      sync.Mutex
	events  []Event
	stopped bool
}

func newFakeStream(events ...Event) *fakeStream {
	return &fakeStream{events: events}
}

func (s *fakeStream) Next(_ context.Context) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || len(s.events) == 0 {
		return Event{}, false
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, true
}

func (s *fakeStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *fakeStream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type watchResult struct {
	stream Stream
	err    error
}

// fakeRepo records the resourceVersion of every Watch call and replays
// queued results. Once the queue is exhausted it returns empty streams.
type fakeRepo struct {
	mu      sync.Mutex
	results []watchResult
	calls   []string
}

func (r *fakeRepo) Watch(_ context.Context, _ WatchTarget, resourceVersion string) (Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, resourceVersion)
	if len(r.results) == 0 {
		return newFakeStream(), nil
	}

	res := r.results[0]
	r.results = r.results[1:]
	return res.stream, res.err
}

func (r *fakeRepo) callVersions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func pod(name, resourceVersion string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:            name,
			Namespace:       "default",
			ResourceVersion: resourceVersion,
		},
	}
}

func goneStatus() *metav1.Status {
	return &metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusGone,
		Reason:  metav1.StatusReasonGone,
		Message: "too old resource version",
	}
}

func drain(t *testing.T, s Stream) []Event {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out []Event
	for {
		ev, ok := s.Next(ctx)
		if !ok {
			if ctx.Err() != nil {
				t.Fatal("timed out draining stream")
			}
			return out
		}
		out = append(out, ev)
	}
}

// pollAsync runs Poll on a goroutine so the test can step the fake
// clock while Poll is parked on the recovery backoff.
func pollAsync(inf *Informer) (<-chan Stream, <-chan error) {
	streams := make(chan Stream, 1)
	errs := make(chan error, 1)
	go func() {
		s, err := inf.Poll(context.Background())
		if err != nil {
			errs <- err
			return
		}
		streams <- s
	}()
	return streams, errs
}

func waitForBackoff(t *testing.T, fc *clocktesting.FakeClock) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !fc.HasWaiters() {
		if time.Now().After(deadline) {
			t.Fatal("poll never reached the backoff wait")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPoll_TracksResourceVersion(t *testing.T) {
	repo := &fakeRepo{results: []watchResult{
		{stream: newFakeStream(
			Event{Type: watch.Added, Object: pod("a", "1")},
			Event{Type: watch.Modified, Object: pod("a", "3")},
		)},
	}}
	inf := NewInformer(repo, testTarget)

	stream, err := inf.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}

	events := drain(t, stream)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if got := inf.Version(); got != "3" {
		t.Errorf("expected version %q, got %q", "3", got)
	}
	if calls := repo.callVersions(); len(calls) != 1 || calls[0] != InitialResourceVersion {
		t.Errorf("expected one watch call at %q, got %v", InitialResourceVersion, calls)
	}
}

func TestPoll_ForwardsEventsUnchanged(t *testing.T) {
	frameErr := errors.New("decode failure")
	raw := []Event{
		{Type: watch.Added, Object: pod("a", "1")},
		{Err: frameErr},
		{Type: watch.Error, Object: &metav1.Status{Code: http.StatusInternalServerError}},
		{Type: watch.Deleted, Object: pod("a", "2")},
	}
	repo := &fakeRepo{results: []watchResult{{stream: newFakeStream(raw...)}}}
	inf := NewInformer(repo, testTarget)

	stream, err := inf.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}

	events := drain(t, stream)
	if len(events) != len(raw) {
		t.Fatalf("expected %d events, got %d", len(raw), len(events))
	}
	for i := range raw {
		if events[i] != raw[i] {
			t.Errorf("event %d altered: got %+v, want %+v", i, events[i], raw[i])
		}
	}
}

func TestPoll_HistoryExpiredResync(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	repo := &fakeRepo{results: []watchResult{
		{stream: newFakeStream(
			Event{Type: watch.Added, Object: pod("a", "5")},
			Event{Type: watch.Error, Object: goneStatus()},
		)},
	}}
	inf := NewInformer(repo, testTarget, WithClock(fc))

	stream, err := inf.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}

	events := drain(t, stream)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Type != watch.Error {
		t.Fatalf("expected the error event to be forwarded, got %v", events[1].Type)
	}

	// The token is not touched by the error event itself; the reset
	// happens at the start of the next Poll.
	if got := inf.Version(); got != "5" {
		t.Errorf("expected version %q before next poll, got %q", "5", got)
	}

	streams, errs := pollAsync(inf)
	waitForBackoff(t, fc)

	// Still waiting: no second watch call yet.
	if calls := repo.callVersions(); len(calls) != 1 {
		t.Fatalf("expected no watch call during backoff, got %v", calls)
	}

	fc.Step(DefaultRecoveryBackoff)

	select {
	case <-streams:
	case err := <-errs:
		t.Fatalf("Poll: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not finish after the backoff")
	}

	calls := repo.callVersions()
	if len(calls) != 2 || calls[1] != InitialResourceVersion {
		t.Errorf("expected resynced watch call at %q, got %v", InitialResourceVersion, calls)
	}

	// Flags are cleared together: a further poll proceeds without a
	// backoff wait.
	if _, err := inf.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if fc.HasWaiters() {
		t.Error("expected no backoff wait once recovery flags are cleared")
	}
}

func TestPoll_OpenFailureRetriesWithSameVersion(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	openErr := errors.New("connection refused")
	repo := &fakeRepo{results: []watchResult{
		{stream: newFakeStream(Event{Type: watch.Added, Object: pod("a", "7")})},
		{err: openErr},
	}}
	inf := NewInformer(repo, testTarget, WithClock(fc))

	stream, err := inf.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	drain(t, stream)

	// The failing open returns immediately, without a backoff wait.
	_, err = inf.Poll(context.Background())
	if err == nil {
		t.Fatal("expected an open failure")
	}
	var openFailure *ErrWatchOpen
	if !errors.As(err, &openFailure) {
		t.Fatalf("expected *ErrWatchOpen, got %T", err)
	}
	if !errors.Is(err, openErr) {
		t.Errorf("expected cause %v in chain, got %v", openErr, err)
	}
	if fc.HasWaiters() {
		t.Error("expected no backoff wait on the failing call itself")
	}
	if got := inf.Version(); got != "7" {
		t.Errorf("open failure must not touch the version: got %q", got)
	}

	// The next call backs off, then redials with the preserved version.
	streams, errs := pollAsync(inf)
	waitForBackoff(t, fc)
	fc.Step(DefaultRecoveryBackoff)

	select {
	case <-streams:
	case err := <-errs:
		t.Fatalf("Poll: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not finish after the backoff")
	}

	calls := repo.callVersions()
	if len(calls) != 3 || calls[2] != "7" {
		t.Errorf("expected retried watch call at %q, got %v", "7", calls)
	}
}

func TestPoll_BackoffCancelable(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	repo := &fakeRepo{results: []watchResult{{err: errors.New("down")}}}
	inf := NewInformer(repo, testTarget, WithClock(fc))

	if _, err := inf.Poll(context.Background()); err == nil {
		t.Fatal("expected an open failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := inf.Poll(ctx)
		errs <- err
	}()

	waitForBackoff(t, fc)
	cancel()

	select {
	case err := <-errs:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not return after cancellation")
	}

	// Release the timer the canceled poll left behind so the next
	// HasWaiters check observes only the new wait.
	fc.Step(DefaultRecoveryBackoff)

	// The pending retry survives the cancellation for the next call.
	streams, pollErrs := pollAsync(inf)
	waitForBackoff(t, fc)
	fc.Step(DefaultRecoveryBackoff)

	select {
	case <-streams:
	case err := <-pollErrs:
		t.Fatalf("Poll: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not finish after the backoff")
	}
}

func TestInitFromVersion(t *testing.T) {
	repo := &fakeRepo{}
	inf := NewInformer(repo, testTarget).InitFromVersion("42")

	if _, err := inf.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if calls := repo.callVersions(); len(calls) != 1 || calls[0] != "42" {
		t.Errorf("expected watch call at %q, got %v", "42", calls)
	}
}

func TestReset(t *testing.T) {
	repo := &fakeRepo{results: []watchResult{
		{stream: newFakeStream(Event{Type: watch.Added, Object: pod("a", "9")})},
	}}
	inf := NewInformer(repo, testTarget)

	stream, err := inf.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	drain(t, stream)

	if got := inf.Version(); got != "9" {
		t.Fatalf("expected version %q, got %q", "9", got)
	}

	inf.Reset()

	if got := inf.Version(); got != InitialResourceVersion {
		t.Errorf("expected version %q after reset, got %q", InitialResourceVersion, got)
	}
}

func TestTrack_SkipsEventsWithoutVersion(t *testing.T) {
	repo := &fakeRepo{results: []watchResult{
		{stream: newFakeStream(
			Event{Type: watch.Added, Object: pod("a", "4")},
			// No resourceVersion on the object.
			Event{Type: watch.Modified, Object: pod("a", "")},
			// No object metadata at all.
			Event{Type: watch.Added, Object: &metav1.Status{}},
		)},
	}}
	inf := NewInformer(repo, testTarget)

	stream, err := inf.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}

	events := drain(t, stream)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if got := inf.Version(); got != "4" {
		t.Errorf("expected version %q, got %q", "4", got)
	}
}

func TestTrack_BookmarkDoesNotAdvanceVersion(t *testing.T) {
	repo := &fakeRepo{results: []watchResult{
		{stream: newFakeStream(
			Event{Type: watch.Added, Object: pod("a", "2")},
			Event{Type: watch.Bookmark, Object: pod("", "8")},
		)},
	}}
	inf := NewInformer(repo, testTarget)

	stream, err := inf.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	drain(t, stream)

	if got := inf.Version(); got != "2" {
		t.Errorf("expected version %q, got %q", "2", got)
	}
}

func TestVersion_ReadableDuringDrain(t *testing.T) {
	repo := &fakeRepo{results: []watchResult{
		{stream: newFakeStream(
			Event{Type: watch.Added, Object: pod("a", "1")},
			Event{Type: watch.Modified, Object: pod("a", "2")},
		)},
	}}
	inf := NewInformer(repo, testTarget)

	stream, err := inf.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}

	// The token reflects exactly the events handed over so far. The
	// second event has not been asked for, so it must not have been
	// observed yet.
	ev, ok := stream.Next(context.Background())
	if !ok || ev.Type != watch.Added {
		t.Fatalf("unexpected first event %v (ok=%v)", ev.Type, ok)
	}
	if got := inf.Version(); got != "1" {
		t.Errorf("expected version %q after first event, got %q", "1", got)
	}

	drain(t, stream)
	if got := inf.Version(); got != "2" {
		t.Errorf("expected version %q after drain, got %q", "2", got)
	}
}
