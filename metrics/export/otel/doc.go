// Package otel provides OpenTelemetry metric bindings for the engine's
// counters and histograms.
//
// [NewExporter] registers an Int64ObservableCounter per engine metric
// and an Int64ObservableGauge per histogram bucket. A single callback
// reads the engine's metrics snapshot on each collection cycle.
//
// The package never owns the MeterProvider; callers supply the Meter and
// control its lifecycle.
package otel
