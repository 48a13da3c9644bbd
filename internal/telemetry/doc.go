// Package telemetry sets up OpenTelemetry tracing and metrics for claimd.
//
// Spans and OTEL metrics are exported over OTLP (gRPC or HTTP/protobuf) to a
// collector. Prometheus metrics are served separately from /metrics and do
// not depend on this package.
//
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// When disabled, or when an exporter cannot be created, Tracer and Meter fall
// back to the global providers and Health reports the degradation. A broken
// collector never stops claim evaluation.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
