// Package database implements the persisted model catalog on SQLite.
//
// The catalog holds one row per model folder: slug, path, content
// fingerprint, asset listing (JSON), optional sidecar description, and a
// preview cache reference. Reconciliation writes go through a single
// explicit transaction so concurrent readers always observe the last fully
// committed catalog state.
package database
