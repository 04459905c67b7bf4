// Package upload receives archive payloads, spools them to disk without
// buffering in memory, and unpacks them into new folders under the library
// root for the next refresh to catalog.
package upload
