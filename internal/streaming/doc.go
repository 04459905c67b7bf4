// Package streaming protects long-running HTTP response streams from
// stalled or disconnected clients. Archive downloads wrap their response
// writer in a TimeoutWriter so a slow consumer cannot pin a compression
// worker indefinitely.
package streaming
