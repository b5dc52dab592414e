// Package observability provides OpenTelemetry integration for distributed tracing.
//
// Traces are exported over OTLP/HTTP to a local collector (or vendor agent
// with an OTLP receiver enabled). Genkit owns the TracerProvider and already
// creates spans for every generate and embed call; this package only attaches
// an exporter to it, so model, embedding and flow spans show up without any
// extra instrumentation.
//
// # Configuration
//
// Config file (paperspeak.yaml):
//
//	tracing:
//	  enabled: true
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "paperspeak"
//
// The endpoint can also be set via OTEL_EXPORTER_OTLP_ENDPOINT.
//
// # Verify the pipeline
//
//	curl -v http://localhost:4318/v1/traces
//
// Spans are flushed on shutdown; allow a minute or two before they appear in
// the backend.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the OTLP/HTTP collector endpoint (default: localhost:4318)
	Endpoint string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the reported service name
	ServiceName string
}

// DefaultEndpoint is the default OTLP/HTTP collector endpoint.
const DefaultEndpoint = "localhost:4318"

// Setup registers an OTLP exporter with Genkit's TracerProvider.
//
// Returns a shutdown function that flushes pending spans. Export setup
// failure disables tracing with a warning instead of failing startup.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Set OTEL_SERVICE_NAME for Genkit's TracerProvider to pick up
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // localhost doesn't need TLS
	)
	if err != nil {
		slog.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
