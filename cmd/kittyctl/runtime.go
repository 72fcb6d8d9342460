package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"kittycore/internal/archive"
	"kittycore/internal/config"
	"kittycore/internal/core"
	"kittycore/pkg/domain"
)

// loadConfig is swapped in tests.
var loadConfig = config.Load

// runtime bundles everything a subcommand needs, opened from configuration.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	store   domain.PersistentStore
	metrics core.MetricsRecorder
	tracer  core.Tracer
	closers []func(context.Context) error
}

func openRuntime(ctx context.Context, stderr io.Writer) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	rt := &runtime{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}

	store, err := core.OpenPersistentStore(cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	rt.store = store
	if c, ok := store.(io.Closer); ok {
		rt.closers = append(rt.closers, func(context.Context) error { return c.Close() })
	}

	if err := rt.setupMetrics(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	if err := rt.setupTracing(stderr); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) setupMetrics(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	prom, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	vars := core.NewExpvarMetricsRecorder("")
	rt.metrics = core.MultiMetricsRecorder{prom, vars}

	if rt.cfg.MetricsAddr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	ln, err := net.Listen("tcp", rt.cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("listen metrics: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("metrics server stopped", "error", err)
		}
	}()
	rt.logger.Info("serving metrics", "addr", ln.Addr().String())
	rt.closers = append(rt.closers, srv.Shutdown)
	return nil
}

func (rt *runtime) setupTracing(stderr io.Writer) error {
	switch rt.cfg.TraceExporter {
	case "json":
		rt.tracer = core.NewJSONTracer(stderr)
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("stdout trace exporter: %w", err)
		}
		provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		rt.tracer = core.NewOTelTracer(provider)
		rt.closers = append(rt.closers, provider.Shutdown)
	}
	return nil
}

// service builds a registry service over the runtime's store.
func (rt *runtime) service(opts ...core.Option) (*core.Service, error) {
	seed, err := rt.cfg.Seed()
	if err != nil {
		return nil, err
	}
	base := []core.Option{
		core.WithLogger(core.NewSlogLogger(rt.logger)),
		core.WithMetricsRecorder(rt.metrics),
		core.WithRandomnessSource(core.ChainSeed{Genesis: seed}),
	}
	if rt.tracer != nil {
		base = append(base, core.WithTracer(rt.tracer))
	}
	return core.NewService(rt.store, append(base, opts...)...), nil
}

func (rt *runtime) archive(ctx context.Context) (*archive.Archive, error) {
	blobs, err := archive.OpenStore(ctx, rt.cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open %s blob store: %w", rt.cfg.Blob.Driver, err)
	}
	return archive.New(blobs), nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
