package config

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// SetupTelemetry exports the spans of one sync run to the configured OTLP
// endpoint. Without an endpoint tracing stays a no-op. The returned function
// flushes pending spans and must run before the process exits.
func SetupTelemetry(ctx context.Context, cfg *Config) (func(), error) {
	endpoint := cfg.GetOTLPEndpoint()
	if endpoint == "" {
		slog.Debug("Tracing disabled, no OTLP endpoint configured")
		return func() {}, nil
	}

	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return func() {}, err
	}
	res, err := NewRunResource(ctx, cfg)
	if err != nil {
		return func() {}, err
	}
	// A run is short-lived and sparse; keep every span.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	slog.Info("Tracing enabled", "endpoint", endpoint)

	return func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}, nil
}

// NewRunResource describes the sync run: the service, the catalog it reads
// and the directories it writes.
func NewRunResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.GetServiceName()),
			attribute.String("portfoliosync.catalog", cfg.GetCatalogPath()),
			attribute.String("portfoliosync.data_dir", cfg.GetDataDir()),
			attribute.String("portfoliosync.content_dir", cfg.GetContentDir()),
			attribute.Int("portfoliosync.concurrency", cfg.GetConcurrency()),
			attribute.Bool("portfoliosync.authenticated", cfg.GetGitHubToken() != ""),
		),
	)
}
