// Package agent drives a core.Informer the way its contract expects:
// poll, drain the stream until the server closes it, poll again,
// forever. Along the way it records metrics and persists the resume
// position so a restarted agent picks up where it left off.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/kubeflux/rewatch/internal/config"
	"github.com/kubeflux/rewatch/internal/core"
	"github.com/kubeflux/rewatch/internal/kubernetes"
	"github.com/kubeflux/rewatch/internal/observe"
)

type Agent struct {
	conf     *config.Config
	informer *core.Informer
	obs      *observe.Observe
	state    *StateFile
	log      *slog.Logger
}

func New(conf *config.Config, repo core.WatchRepo, obs *observe.Observe) (*Agent, error) {
	target, err := newTarget(
		conf.WatchGroup(),
		conf.WatchVersion(),
		conf.WatchResource(),
		conf.WatchNamespace(),
		conf.WatchLabelSelector(),
		conf.WatchFieldSelector(),
	)
	if err != nil {
		return nil, err
	}

	log := slog.Default().With("component", "agent", "instance", uuid.NewString())

	informer := core.NewInformer(repo, target,
		core.WithRecoveryBackoff(conf.WatchBackoff()),
	)

	a := &Agent{
		conf:     conf,
		informer: informer,
		obs:      obs,
		log:      log,
	}

	if path := conf.WatchStateFile(); path != "" {
		a.state = NewStateFile(path)
	}

	return a, nil
}

// newTarget validates the configured coordinates and builds the watch
// target.
func newTarget(group, version, resource, namespace, labelSelector, fieldSelector string) (core.WatchTarget, error) {
	if version == "" {
		return core.WatchTarget{}, fmt.Errorf("watch version is required")
	}
	if resource == "" {
		return core.WatchTarget{}, fmt.Errorf("watch resource is required")
	}

	return core.WatchTarget{
		Resource: schema.GroupVersionResource{
			Group:    group,
			Version:  version,
			Resource: resource,
		},
		Namespace:     namespace,
		LabelSelector: labelSelector,
		FieldSelector: fieldSelector,
	}, nil
}

// Run restores the persisted resume position, then runs the watch loop
// and the metrics server until the context is canceled.
func (a *Agent) Run(ctx context.Context) error {
	if a.state != nil {
		v, err := a.state.Load()
		if err != nil {
			return fmt.Errorf("load watch state: %w", err)
		}
		if v != "" {
			a.informer.InitFromVersion(v)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.obs.Run(ctx, a.conf.AgentMetricsAddress())
	})

	g.Go(func() error {
		return a.watch(ctx)
	})

	return g.Wait()
}

// watch is the poll loop. A failed open is logged and counted, then
// the loop simply polls again; the informer applies the backoff on
// that next call. The loop ends only with the context.
func (a *Agent) watch(ctx context.Context) error {
	for {
		stream, err := a.informer.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				a.log.Info("watch loop stopping", "resourceVersion", a.informer.Version())
				return nil
			}

			a.obs.Metrics().OpenFailed(ctx, kubernetes.FailureReason(err))
			continue
		}

		a.obs.Metrics().StreamOpened(ctx)
		a.drain(ctx, stream)

		if a.state != nil {
			if err := a.state.Save(a.informer.Version()); err != nil {
				a.log.Warn("failed to persist watch position", "error", err)
			}
		}

		if ctx.Err() != nil {
			a.log.Info("watch loop stopping", "resourceVersion", a.informer.Version())
			return nil
		}
	}
}

func (a *Agent) drain(ctx context.Context, stream core.Stream) {
	defer stream.Stop()

	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			return
		}
		a.handle(ctx, ev)
	}
}

func (a *Agent) handle(ctx context.Context, ev core.Event) {
	metrics := a.obs.Metrics()

	if ev.Err != nil {
		metrics.Event(ctx, "FRAME_ERROR")
		return
	}

	metrics.Event(ctx, string(ev.Type))

	switch ev.Type {
	case watch.Added, watch.Modified, watch.Deleted:
		acc, err := meta.Accessor(ev.Object)
		if err != nil {
			return
		}
		a.log.Info("event",
			"type", ev.Type,
			"namespace", acc.GetNamespace(),
			"name", acc.GetName(),
			"resourceVersion", acc.GetResourceVersion(),
		)

	case watch.Error:
		if status, ok := ev.Object.(*metav1.Status); ok && status.Code == http.StatusGone {
			metrics.Resync(ctx)
		}
	}
}
