// Package otel publishes Engine metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter. Each
// histogram becomes a cumulative bucket gauge with an "le" attribute and a
// count gauge. A single callback reads [goContacts.Engine.MetricsSnapshot]
// on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
