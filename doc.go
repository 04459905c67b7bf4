// Command model-library serves a catalog of 3D-model folders.
//
// It periodically reconciles a filesystem library against a SQLite catalog,
// generates preview images for models that carry one, and serves the catalog
// over HTTP together with raw assets and on-the-fly zip downloads of whole
// model folders.
//
// # Application Lifecycle
//
//  1. Configuration Loading: reads environment variables (honoring a .env
//     file) and validates the library and data directories
//  2. Database Initialization: opens the SQLite catalog, applying schema
//     migrations
//  3. Component Initialization: preview cache, worker pools, reconciler,
//     archive streamer, upload receiver
//  4. Initial Refresh: one catalog reconciliation runs in the background
//  5. HTTP Serving: API, static assets, previews and health endpoints,
//     plus an optional separate Prometheus metrics listener
//
// Shutdown on SIGINT/SIGTERM drains in-flight requests with a 30 second
// grace period.
package main
