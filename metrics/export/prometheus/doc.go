// Package prometheus renders Engine metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [goContacts.Engine] and exposes an
// [http.Handler]. Counter names are prefixed contacts_ and end in _total;
// the single histogram is contacts_authorize_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
