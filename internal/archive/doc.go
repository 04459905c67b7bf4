// Package archive streams zip archives of model folders.
//
// Archives are generated incrementally: a producer goroutine compresses
// file contents into a bounded channel while the consumer forwards chunks
// to the requesting peer, giving natural backpressure and memory bounded
// by a small multiple of one read buffer. A mid-walk read failure or a
// departed consumer truncates the stream; bytes already delivered are
// never retracted.
package archive
