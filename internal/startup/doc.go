// Package startup handles configuration loading, directory validation, and
// structured startup/shutdown logging for the model library server.
package startup
