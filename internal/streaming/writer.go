package streaming

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"model-library/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a single write exceeded the configured
	// timeout, usually a client receiving data too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates the client disconnected before the stream
	// completed, detected via the request context.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates the stream was canceled via Close.
	ErrStreamCanceled = errors.New("stream canceled")
)

// TimeoutWriterConfig configures the timeout writer behavior
type TimeoutWriterConfig struct {
	// WriteTimeout is the maximum time to wait for a single write
	WriteTimeout time.Duration
	// IdleTimeout is the maximum time between successful writes
	IdleTimeout time.Duration
}

// DefaultTimeoutWriterConfig returns defaults tuned for archive downloads,
// which are long-lived but should always show steady progress.
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// TimeoutWriter wraps an http.ResponseWriter so that a stalled client
// cannot hold an archive stream open forever. Each write is raced against
// WriteTimeout; an idle checker cancels streams with no progress.
type TimeoutWriter struct {
	w         http.ResponseWriter
	ctx       context.Context
	cancel    context.CancelFunc
	config    TimeoutWriterConfig
	flusher   http.Flusher
	startTime time.Time

	mu           sync.Mutex
	lastWrite    time.Time
	bytesWritten int64
	closed       bool
}

// NewTimeoutWriter creates a timeout-protected writer over w. The returned
// writer's Done channel fires when the stream should stop; pass Context()
// to the producer so cancellation propagates.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	writerCtx, cancel := context.WithCancel(ctx)

	tw := &TimeoutWriter{
		w:         w,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
		lastWrite: time.Now(),
	}

	if flusher, ok := w.(http.Flusher); ok {
		tw.flusher = flusher
	}

	go tw.idleChecker()

	return tw
}

// Context returns the writer's context. It is canceled when the client
// disconnects, a timeout fires, or Close is called.
func (tw *TimeoutWriter) Context() context.Context {
	return tw.ctx
}

// BytesWritten returns the number of bytes successfully written so far.
func (tw *TimeoutWriter) BytesWritten() int64 {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten
}

// Write implements io.Writer with timeout protection
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return 0, ErrStreamCanceled
	}

	select {
	case <-tw.ctx.Done():
		return 0, tw.contextError()
	default:
	}

	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	// The underlying write cannot be interrupted, so race it against the
	// timeout instead. A write that loses the race still completes in the
	// background; its goroutine exits via the buffered channel.
	go func() {
		n, err := tw.w.Write(p)
		resultCh <- writeResult{n, err}
	}()

	select {
	case result := <-resultCh:
		if result.err == nil {
			tw.mu.Lock()
			tw.lastWrite = time.Now()
			tw.bytesWritten += int64(result.n)
			tw.mu.Unlock()

			if tw.flusher != nil {
				tw.flusher.Flush()
			}
		}
		return result.n, result.err

	case <-time.After(tw.config.WriteTimeout):
		tw.cancel()
		return 0, ErrWriteTimeout

	case <-tw.ctx.Done():
		return 0, tw.contextError()
	}
}

// Close stops the stream and releases the idle checker. Safe to call more
// than once.
func (tw *TimeoutWriter) Close() {
	tw.mu.Lock()
	tw.closed = true
	tw.mu.Unlock()
	tw.cancel()
}

// contextError maps context cancellation to the streaming error taxonomy.
func (tw *TimeoutWriter) contextError() error {
	if errors.Is(tw.ctx.Err(), context.Canceled) {
		tw.mu.Lock()
		closed := tw.closed
		tw.mu.Unlock()
		if closed {
			return ErrStreamCanceled
		}
	}
	return ErrClientGone
}

// idleChecker cancels the stream when no write has succeeded for longer
// than IdleTimeout.
func (tw *TimeoutWriter) idleChecker() {
	if tw.config.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(tw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.mu.Lock()
			idle := time.Since(tw.lastWrite)
			closed := tw.closed
			tw.mu.Unlock()

			if closed {
				return
			}

			if idle > tw.config.IdleTimeout {
				logging.Warn("Stream idle timeout exceeded after %v", idle)
				tw.cancel()
				return
			}

		case <-tw.ctx.Done():
			return
		}
	}
}
