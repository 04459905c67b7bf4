// Package metrics defines Prometheus metrics for the model library server,
// covering HTTP traffic, catalog database operations, library refresh runs,
// archive streaming, preview generation, uploads, and worker pool usage.
package metrics
