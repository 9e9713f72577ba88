// Package tracing wraps OpenTelemetry so the scheduler can put spans around
// slow operations such as physical migrations without importing the SDK.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "rtsched"

var (
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
)

// ShutdownFunc flushes and stops the installed provider.
type ShutdownFunc func(ctx context.Context) error

func nopShutdown(context.Context) error { return nil }

// Init installs a stdout exporter writing to outputFile, or os.Stdout when
// outputFile is empty. The returned ShutdownFunc also closes outputFile.
func Init(serviceName, serviceVersion, outputFile string) (ShutdownFunc, error) {
	var (
		w        io.Writer = os.Stdout
		closeOut           = func() error { return nil }
	)
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return nopShutdown, err
		}
		w, closeOut = f, f.Close
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		_ = closeOut()
		return nopShutdown, err
	}
	shutdown, err := InitWithExporter(serviceName, serviceVersion, exporter)
	if err != nil {
		_ = closeOut()
		return nopShutdown, err
	}
	return func(ctx context.Context) error {
		err := shutdown(ctx)
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		return err
	}, nil
}

// InitWithExporter installs the supplied exporter as the global provider.
// While a provider is installed further calls are no-ops.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (ShutdownFunc, error) {
	if exporter == nil {
		return nopShutdown, nil
	}
	mu.Lock()
	defer mu.Unlock()
	if provider != nil {
		return nopShutdown, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nopShutdown, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	provider = tp

	return func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if provider == tp {
			provider = nil
		}
		return tp.Shutdown(ctx)
	}, nil
}

// StartSpan starts an internal span on the global provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err, if any, and ends the span.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
