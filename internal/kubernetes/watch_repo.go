package kubernetes

import (
	"context"
	"sync"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/kubeflux/rewatch/internal/config"
	"github.com/kubeflux/rewatch/internal/core"
)

// watchRepo implements core.WatchRepo by delegating to the Kubernetes
// dynamic client.
type watchRepo struct {
	kubernetes *Kubernetes
	bookmarks  bool
}

// NewWatchRepo returns a core.WatchRepo backed by the Kubernetes
// dynamic API.
func NewWatchRepo(kubernetes *Kubernetes, conf *config.Config) core.WatchRepo {
	return &watchRepo{
		kubernetes: kubernetes,
		bookmarks:  conf.WatchBookmarks(),
	}
}

var _ core.WatchRepo = (*watchRepo)(nil)

// Watch opens a single long-poll watch stream for the target. The
// server delivers history-expiry and other protocol errors in-stream,
// so only connection-level failures surface here.
func (r *watchRepo) Watch(ctx context.Context, target core.WatchTarget, resourceVersion string) (core.Stream, error) {
	opts := metav1.ListOptions{
		LabelSelector:       target.LabelSelector,
		FieldSelector:       target.FieldSelector,
		ResourceVersion:     resourceVersion,
		AllowWatchBookmarks: r.bookmarks,
		Watch:               true,
	}

	w, err := r.kubernetes.client.Resource(target.Resource).Namespace(target.Namespace).Watch(ctx, opts)
	if err != nil {
		return nil, err
	}

	return newStream(w), nil
}

// stream adapts a client-go watch.Interface to core.Stream. Frames are
// read from the underlying channel only when the consumer asks for
// them; client-go surfaces frame decode failures as watch.Error
// events, which pass through as such.
type stream struct {
	w watch.Interface

	stopOnce sync.Once
}

func newStream(w watch.Interface) *stream {
	return &stream{w: w}
}

func (s *stream) Next(ctx context.Context) (core.Event, bool) {
	select {
	case ev, ok := <-s.w.ResultChan():
		if !ok {
			return core.Event{}, false
		}
		return core.Event{Type: ev.Type, Object: ev.Object}, true
	case <-ctx.Done():
		return core.Event{}, false
	}
}

func (s *stream) Stop() {
	s.stopOnce.Do(func() {
		s.w.Stop()
	})
}
