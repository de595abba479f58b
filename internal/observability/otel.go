// Package observability sets up OpenTelemetry tracing for the binaries.
package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/OFFIS-RIT/lexgraph/internal/util"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
)

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

var (
	otelOnce     sync.Once
	otelShutdown = func(context.Context) error { return nil }
)

// InitOTel installs the global tracer provider when OTEL_ENABLED is set.
// Spans go to OTEL_EXPORTER_OTLP_ENDPOINT when configured and to stdout
// otherwise. The returned function flushes and stops the provider; it is a
// no-op when tracing is disabled.
func InitOTel(ctx context.Context, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		if !util.GetEnvBool("OTEL_ENABLED", false) {
			return
		}
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "lexgraph"
		}
		res, err := resource.New(
			ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(serviceName),
				semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
				attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
			),
		)
		if err != nil {
			logger.Warn("[Otel] Resource init failed, continuing", "err", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio()))),
			sdktrace.WithResource(res),
		}
		exporter, err := buildTraceExporter(ctx)
		if err != nil {
			logger.Warn("[Otel] Exporter init failed, continuing without export", "err", err)
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		logger.Info("[Otel] Tracing initialized", "service", serviceName, "endpoint", util.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	})
	return otelShutdown
}

func sampleRatio() float64 {
	return min(max(util.GetEnvNumeric("OTEL_SAMPLER_RATIO", 1), 0), 1)
}

// otlpHeaders parses "k1=v1,k2=v2".
func otlpHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for part := range strings.SplitSeq(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func buildTraceExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	endpoint := util.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		logger.Debug("[Otel] No OTLP endpoint configured, using stdout exporter")
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if util.GetEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false) {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if headers := otlpHeaders(util.GetEnv("OTEL_EXPORTER_OTLP_HEADERS")); headers != nil {
		opts = append(opts, otlptracehttp.WithHeaders(headers))
	}
	return otlptracehttp.New(ctx, opts...)
}
