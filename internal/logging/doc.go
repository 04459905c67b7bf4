// Package logging provides leveled logging for the model library server.
// The level is controlled by the LOG_LEVEL environment variable, or forced
// to debug with DEBUG=true.
package logging
