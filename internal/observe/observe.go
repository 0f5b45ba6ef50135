// Package observe wires watch metrics to the OpenTelemetry meter and
// serves them, together with a health probe, over a small HTTP
// endpoint backed by the Prometheus exporter.
package observe

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observe struct {
	metrics *Metrics
	handler http.Handler
}

// New registers the Prometheus exporter as the global meter provider
// and builds the watch instruments plus the HTTP handler exposing
// /metrics and /healthz.
func New() (*Observe, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(metric.NewMeterProvider(metric.WithReader(exporter)))

	metrics, err := newMetrics(otel.Meter("rewatch"))
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Observe{
		metrics: metrics,
		handler: cors.AllowAll().Handler(mux),
	}, nil
}

func (o *Observe) Metrics() *Metrics {
	return o.metrics
}

// Run serves the metrics endpoint until the context is canceled, then
// shuts the server down gracefully.
func (o *Observe) Run(ctx context.Context, address string) error {
	protocols := new(http.Protocols)
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)

	srv := &http.Server{
		Addr:              address,
		Handler:           o.handler,
		ReadHeaderTimeout: time.Second,
		MaxHeaderBytes:    8 * 1024, // 8KiB
		Protocols:         protocols,
	}

	listener, err := net.Listen("tcp", address) //nolint:noctx // context not needed for Listen
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Metrics server starting on", "address", listener.Addr().String())

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
