// Package handlers implements the HTTP API of the model library: catalog
// refresh, model listing and detail, archive downloads, uploads, health
// and version endpoints.
package handlers
