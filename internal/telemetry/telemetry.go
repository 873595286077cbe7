// Package telemetry wires up OpenTelemetry tracing for the pipeline's
// agents, following bandfuzz's pkg/telemetry: an OTLP gRPC exporter, a
// batching tracer provider tagged with the process's service name, and a
// best-effort log exporter that never fails process startup if the
// collector is unreachable.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Telemetry exposes the tracer a package needs to start spans. Modeled on
// bandfuzz's Telemetry interface.
type Telemetry interface {
	Tracer() trace.Tracer
}

type telemetryImpl struct {
	tracer trace.Tracer
}

func (t *telemetryImpl) Tracer() trace.Tracer { return t.tracer }

// Params is the fx.In bundle New needs.
type Params struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Logger      *zap.Logger
	ServiceName string `name:"serviceName"`
	OTLPEndpoint string `name:"otlpEndpoint" optional:"true"`
}

// New sets up the global tracer provider and, best-effort, the log
// provider, and returns a Telemetry wrapping the resulting tracer.
func New(p Params) (Telemetry, error) {
	endpoint := p.OTLPEndpoint
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	ctx, cancel := context.WithCancel(context.Background())

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceNameKey.String(p.ServiceName)),
	)
	if err != nil {
		cancel()
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		cancel()
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var lp *sdklog.LoggerProvider
	logExporter, logErr := otlploggrpc.New(ctx, otlploggrpc.WithEndpoint(endpoint), otlploggrpc.WithInsecure())
	if logErr != nil {
		p.Logger.Warn("otlp log exporter unavailable, continuing without log export", zap.Error(logErr))
	} else {
		lp = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			defer cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(stopCtx, 5*time.Second)
			defer shutdownCancel()

			if err := tp.Shutdown(shutdownCtx); err != nil {
				p.Logger.Warn("tracer provider shutdown failed", zap.Error(err))
			}
			if lp != nil {
				if err := lp.Shutdown(shutdownCtx); err != nil {
					p.Logger.Warn("log provider shutdown failed", zap.Error(err))
				}
			}
			return nil
		},
	})

	return &telemetryImpl{tracer: tp.Tracer(p.ServiceName)}, nil
}

// Module provides a Telemetry to the fx graph.
var Module = fx.Options(fx.Provide(New))
