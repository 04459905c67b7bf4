package streaming

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWritePassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	tw := NewTimeoutWriter(context.Background(), rec, DefaultTimeoutWriterConfig())
	defer tw.Close()

	n, err := tw.Write([]byte("archive bytes"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 13 {
		t.Errorf("Expected 13 bytes, got %d", n)
	}
	if tw.BytesWritten() != 13 {
		t.Errorf("Expected BytesWritten 13, got %d", tw.BytesWritten())
	}
	if rec.Body.String() != "archive bytes" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}
}

func TestWriteAfterClose(t *testing.T) {
	rec := httptest.NewRecorder()
	tw := NewTimeoutWriter(context.Background(), rec, DefaultTimeoutWriterConfig())
	tw.Close()

	_, err := tw.Write([]byte("late"))
	if !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("Write = %v, want ErrStreamCanceled", err)
	}
}

func TestClientDisconnect(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	tw := NewTimeoutWriter(ctx, rec, DefaultTimeoutWriterConfig())
	defer tw.Close()

	cancel()

	_, err := tw.Write([]byte("data"))
	if !errors.Is(err, ErrClientGone) {
		t.Errorf("Write = %v, want ErrClientGone", err)
	}
}

// slowWriter blocks every write until released.
type slowWriter struct {
	http.ResponseWriter
	release chan struct{}
}

func (sw *slowWriter) Write(p []byte) (int, error) {
	<-sw.release
	return len(p), nil
}

func TestWriteTimeout(t *testing.T) {
	sw := &slowWriter{ResponseWriter: httptest.NewRecorder(), release: make(chan struct{})}
	defer close(sw.release)

	config := TimeoutWriterConfig{WriteTimeout: 20 * time.Millisecond}
	tw := NewTimeoutWriter(context.Background(), sw, config)
	defer tw.Close()

	_, err := tw.Write([]byte("stuck"))
	if !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Write = %v, want ErrWriteTimeout", err)
	}

	// The writer context is canceled so producers stop too.
	select {
	case <-tw.Context().Done():
	case <-time.After(time.Second):
		t.Error("Expected context cancellation after timeout")
	}
}

func TestIdleTimeout(t *testing.T) {
	rec := httptest.NewRecorder()
	config := TimeoutWriterConfig{
		WriteTimeout: time.Second,
		IdleTimeout:  20 * time.Millisecond,
	}
	tw := NewTimeoutWriter(context.Background(), rec, config)
	defer tw.Close()

	select {
	case <-tw.Context().Done():
	case <-time.After(time.Second):
		t.Error("Expected idle checker to cancel the context")
	}
}
