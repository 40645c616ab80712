package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config selects what the provider exports. CollectorURL is the otlp/http endpoint
// (host:port or a URL).
type Config struct {
	ServiceName    string  `json:"service_name,default=playhub-portal" yaml:"service_name"`
	ServiceVersion string  `json:"service_version,default=dev" yaml:"service_version"`
	Environment    string  `json:"environment,default=development" yaml:"environment"`
	CollectorURL   string  `json:"collector_url,optional" yaml:"collector_url"`
	Insecure       bool    `json:"insecure,default=true" yaml:"insecure"`
	EnableTracing  bool    `json:"enable_tracing,optional" yaml:"enable_tracing"`
	EnableMetrics  bool    `json:"enable_metrics,optional" yaml:"enable_metrics"`
	SamplingRatio  float64 `json:"sampling_ratio,default=1" yaml:"sampling_ratio"`
}

// Provider owns the otel SDK providers and the content instruments.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Metrics        *ContentMetrics
	config         Config
}

// NewProvider installs the global tracer and meter providers when enabled. With both
// exports disabled the globals stay no-op and Metrics records into them.
func NewProvider(ctx context.Context, config Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ServiceName == "" {
		config.ServiceName = "playhub"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{config: config}
	if (config.EnableTracing || config.EnableMetrics) && strings.TrimSpace(config.CollectorURL) == "" {
		return nil, errors.New("telemetry: collector_url is required when exporting")
	}

	if config.EnableTracing {
		p.TracerProvider, err = initTracing(ctx, res, config)
		if err != nil {
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
		otel.SetTracerProvider(p.TracerProvider)
	}
	if config.EnableMetrics {
		p.MeterProvider, err = initMetrics(ctx, res, config)
		if err != nil {
			return nil, fmt.Errorf("failed to init metrics: %w", err)
		}
		otel.SetMeterProvider(p.MeterProvider)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.Metrics, err = NewContentMetrics(otel.Meter("playhub.content"))
	if err != nil {
		return nil, fmt.Errorf("failed to create content metrics: %w", err)
	}
	logger.Info("telemetry ready",
		"service", config.ServiceName,
		"tracing", config.EnableTracing,
		"metrics", config.EnableMetrics,
		"collector", config.CollectorURL)
	return p, nil
}

// endpoint strips a scheme so the otlp exporters accept "http://host:4318" as well.
func endpoint(raw string) (host string, insecure bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(raw, "http://"), "/"), true
	case strings.HasPrefix(raw, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(raw, "https://"), "/"), false
	}
	return strings.TrimSuffix(raw, "/"), false
}

func initTracing(ctx context.Context, res *resource.Resource, config Config) (*trace.TracerProvider, error) {
	host, plain := endpoint(config.CollectorURL)
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithURLPath("/v1/traces"),
	}
	if plain || config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	ratio := config.SamplingRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(exp,
			trace.WithBatchTimeout(5*time.Second),
			trace.WithMaxExportBatchSize(512),
		),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(ratio))),
	), nil
}

func initMetrics(ctx context.Context, res *resource.Resource, config Config) (*metric.MeterProvider, error) {
	host, plain := endpoint(config.CollectorURL)
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(host),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if plain || config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exp, metric.WithInterval(30*time.Second))),
	), nil
}

// Shutdown flushes and stops the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ConfigFromEnv reads the standard OTEL_* variables.
func ConfigFromEnv() Config {
	return Config{
		ServiceName:    getEnvOrDefault("OTEL_SERVICE_NAME", "playhub"),
		ServiceVersion: getEnvOrDefault("OTEL_SERVICE_VERSION", "dev"),
		Environment:    getEnvOrDefault("OTEL_ENVIRONMENT", "development"),
		CollectorURL:   getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Insecure:       getEnvOrDefault("OTEL_EXPORTER_OTLP_INSECURE", "true") == "true",
		EnableTracing:  getEnvOrDefault("OTEL_ENABLE_TRACING", "false") == "true",
		EnableMetrics:  getEnvOrDefault("OTEL_ENABLE_METRICS", "false") == "true",
		SamplingRatio:  parseFloatOrDefault(os.Getenv("OTEL_SAMPLING_RATIO"), 1),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatOrDefault(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}
