// Package telemetry wires OpenTelemetry tracing. Spans are exported over
// OTLP gRPC when enabled; when disabled every helper degrades to a no-op so
// call sites never branch on configuration.
// Пакет telemetry подключает трассировку OpenTelemetry. Спаны экспортируются
// по OTLP gRPC при включении; при выключении все хелперы вырождаются в no-op,
// поэтому места вызова не зависят от конфигурации.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the tracing settings.
// Config содержит настройки трассировки.
type Config struct {
	ServiceName    string // Reported service name / Имя сервиса в телеметрии
	ServiceVersion string // Reported version / Версия в телеметрии
	Environment    string // Deploy environment / Окружение развёртывания
	OTLPEndpoint   string // Collector address / Адрес коллектора
	Enabled        bool   // Export spans / Экспортировать спаны
}

// DefaultConfig returns the local-development settings with export off.
// DefaultConfig возвращает настройки локальной разработки с выключенным
// экспортом.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "account-core",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	}
}

// Provider owns the tracer provider lifecycle.
// Provider владеет жизненным циклом tracer provider.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	Tracer         trace.Tracer
}

// InitTelemetry builds the provider and installs it globally. With tracing
// disabled the provider has no exporter, so spans are created but dropped.
// InitTelemetry создаёт provider и устанавливает его глобально. При
// выключенной трассировке provider не имеет экспортёра, поэтому спаны
// создаются, но отбрасываются.
func InitTelemetry(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{
			TracerProvider: tp,
			Tracer:         tp.Tracer(cfg.ServiceName),
		}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		TracerProvider: tp,
		Tracer:         tp.Tracer(cfg.ServiceName),
	}, nil
}

// Shutdown flushes pending spans.
// Shutdown сбрасывает накопленные спаны.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.TracerProvider != nil {
		return p.TracerProvider.Shutdown(ctx)
	}
	return nil
}

// StartSpan opens a span on the provider's tracer.
// StartSpan открывает спан на tracer провайдера.
func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, name, opts...)
}

// AddSpanEvent attaches an event to the span already in ctx, if any.
// AddSpanEvent прикрепляет событие к спану из ctx, если он есть.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError marks the span in ctx with an error, if any span is active.
// RecordError помечает спан из ctx ошибкой, если спан активен.
func RecordError(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
}

// Attribute keys for the auth domain.
// Ключи атрибутов домена аутентификации.
var (
	AttrUserID      = attribute.Key("user.id")
	AttrLoginStatus = attribute.Key("auth.login.status")
	AttrTwoFAMethod = attribute.Key("auth.twofa.method")
	AttrNotifyType  = attribute.Key("notify.type")
	AttrCacheHit    = attribute.Key("cache.hit")
	AttrDBTable     = attribute.Key("db.table")
)
