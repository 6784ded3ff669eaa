// Package tracing は OpenTelemetry のトレーサープロバイダーを構成する
package tracing

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/sanosuguru/go-show-reservation/internal/config"
)

// ShutdownFunc はプロバイダーを停止し、未送信のスパンを送る
type ShutdownFunc func(context.Context) error

// Setup はOTLP/gRPCエクスポーターを持つプロバイダーをグローバルに設定する。
// エンドポイント未設定の場合は何もしない（グローバルは no-op のまま）
func Setup(ctx context.Context, cfg config.TracingConfig) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "OTLPエクスポーター作成に失敗")
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, errors.Wrap(err, "リソース作成に失敗")
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer は指定名のトレーサーをグローバルプロバイダーから取得する
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
