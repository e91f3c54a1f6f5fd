// Package telemetry sets up OpenTelemetry tracing. Without a collector
// endpoint the returned provider is a no-op and spans cost nothing.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName is the registry key of the shared *Provider.
const ServiceName = "telemetry.provider"

// TracerName is the instrumentation scope used by ragchat spans.
const TracerName = "github.com/flemzord/ragchat"

// Config selects the exporter.
type Config struct {
	// Endpoint is host:port or a full http(s) URL. Empty disables export.
	Endpoint    string
	Insecure    bool
	ServiceName string

	// SampleRatio in (0, 1]. Zero samples everything.
	SampleRatio float64
}

// Provider owns the tracer provider and its shutdown.
type Provider struct {
	tp       trace.TracerProvider
	shutdown func(context.Context) error
}

// Setup builds a Provider for cfg.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Endpoint == "" {
		return &Provider{
			tp:       noop.NewTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exp, err := otlptracehttp.New(ctx, exporterOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "ragchat"
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	return &Provider{tp: tp, shutdown: tp.Shutdown}, nil
}

func exporterOptions(cfg Config) []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// Noop returns a provider that records nothing. Used by tests and by
// commands that never export.
func Noop() *Provider {
	p, _ := Setup(context.Background(), Config{})
	return p
}

// TracerProvider returns the underlying provider.
func (p *Provider) TracerProvider() trace.TracerProvider { return p.tp }

// Tracer returns the ragchat tracer.
func (p *Provider) Tracer() trace.Tracer { return p.tp.Tracer(TracerName) }

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}
