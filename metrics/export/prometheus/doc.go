// Package prometheus renders authgate metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts an [authgate.Handler] and exposes an
// [http.Handler] that renders every counter. Counter names are prefixed
// authgate_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the
//     Handler themselves.
//   - Mutate handler state.
package prometheus
