// Package otel exports authgate metrics through an OpenTelemetry
// [metric.Meter] using observable counters.
//
// Observations are pulled from a point-in-time snapshot each time the
// reader collects, so the exporter never holds handler locks between
// collections.
//
// # What this package must NOT do
//
//   - Own a MeterProvider. Callers supply the meter and its reader.
//   - Mutate handler state.
package otel
