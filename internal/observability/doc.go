// Package observability adapts zap, Prometheus and OpenTelemetry to the
// logger, metrics and tracer hooks of the core service.
package observability
