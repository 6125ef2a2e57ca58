// Package otel bridges engine metrics into OpenTelemetry.
//
// [NewExporter] registers an observable counter per engine metric on a
// caller-supplied [metric.Meter]; values are read from engine snapshots
// during each collection cycle, so the engine's hot paths stay free of
// OTel instrumentation calls.
//
// # What this package must NOT do
//
//   - Configure or own a MeterProvider; callers bring their own.
//   - Mutate engine state.
package otel
