// Package observability provides structured logging and metrics
// for the coffee shop API.
//
// This package implements:
//   - Logger construction (zap, JSON or console encoding)
//   - Prometheus collectors on a private registry, exposed at /metrics
//
// Components receive a *zap.Logger and an optional *Metrics; a nil
// *Metrics disables recording.
package observability
