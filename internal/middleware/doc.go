// Package middleware provides HTTP middleware for the model library server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded label cardinality
//   - Permissive CORS for the browser frontend
package middleware
