package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"model-library/internal/filesystem"
	"model-library/internal/logging"
	"model-library/internal/metrics"
	"model-library/internal/workers"
)

// Sentinel errors for archive streaming.
var (
	// ErrInvalidPath indicates a requested folder that resolves outside
	// the library root.
	ErrInvalidPath = errors.New("folder resolves outside library root")

	// ErrNotFound indicates a requested folder that does not exist.
	ErrNotFound = errors.New("folder not found")

	// ErrStreamAborted indicates the stream stopped before the archive was
	// complete, either because a file became unreadable mid-walk or the
	// consumer went away.
	ErrStreamAborted = errors.New("archive stream aborted")
)

const (
	// chunkSize is the read buffer for one file; memory use is bounded by
	// a small multiple of this regardless of folder size.
	chunkSize = 64 * 1024

	// chunkBuffer is the bounded channel depth between the compressing
	// producer and the forwarding consumer.
	chunkBuffer = 8
)

// ContentType is the MIME type of the produced archive stream.
const ContentType = "application/zip"

// Streamer produces incrementally generated zip archives of model folders.
type Streamer struct {
	libraryDir string
	pool       *workers.Pool
}

// NewStreamer creates a Streamer for folders under libraryDir. pool bounds
// concurrent compression work.
func NewStreamer(libraryDir string, pool *workers.Pool) *Streamer {
	return &Streamer{
		libraryDir: libraryDir,
		pool:       pool,
	}
}

// Resolve validates that folder names a directory inside the library root
// and returns its absolute path. Path traversal outside the root is
// rejected.
func (s *Streamer) Resolve(folder string) (string, error) {
	rootAbs, err := filepath.Abs(s.libraryDir)
	if err != nil {
		return "", err
	}

	abs := filepath.Join(rootAbs, filepath.FromSlash(folder))
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !info.IsDir() {
		return "", ErrNotFound
	}

	return abs, nil
}

// Stream writes a zip archive of folder's contents to w. Generation is
// pipelined: a producer reads and compresses files into a bounded channel
// that the consumer drains into w, so the producer suspends when the
// consumer is slow (backpressure). Cancelling ctx stops the producer
// within one chunk and releases open file handles; bytes already sent are
// not retracted, so the consumer may observe a truncated archive.
func (s *Streamer) Stream(ctx context.Context, folder string, w io.Writer) error {
	dir, err := s.Resolve(folder)
	if err != nil {
		return err
	}

	if err := s.pool.Acquire(ctx); err != nil {
		return err
	}
	defer s.pool.Release()

	start := time.Now()
	defer func() {
		metrics.ArchiveStreamDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks := make(chan []byte, chunkBuffer)
	produceErr := make(chan error, 1)

	go func() {
		produceErr <- produce(ctx, dir, chunks)
		close(chunks)
	}()

	var written int64
	var consumeErr error
	for chunk := range chunks {
		if consumeErr != nil {
			continue // drain so the producer can exit
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			consumeErr = err
			cancel()
		}
	}

	metrics.ArchiveBytesStreamed.Add(float64(written))

	err = <-produceErr
	switch {
	case consumeErr != nil:
		metrics.ArchiveStreamsTotal.WithLabelValues("client_gone").Inc()
		logging.Info("Archive stream for %s stopped, client gone after %d bytes: %v", folder, written, consumeErr)
		return fmt.Errorf("%w: %v", ErrStreamAborted, consumeErr)
	case err != nil:
		metrics.ArchiveStreamsTotal.WithLabelValues("aborted").Inc()
		logging.Error("Archive stream for %s aborted after %d bytes: %v", folder, written, err)
		return fmt.Errorf("%w: %v", ErrStreamAborted, err)
	default:
		metrics.ArchiveStreamsTotal.WithLabelValues("complete").Inc()
		logging.Debug("Archive stream for %s complete: %d bytes in %v", folder, written, time.Since(start))
		return nil
	}
}

// produce walks dir recursively and writes one zip entry per regular file,
// emitting compressed bytes through out. The walk is unbounded in depth;
// entry names are slash paths relative to dir.
func produce(ctx context.Context, dir string, out chan<- []byte) error {
	zw := zip.NewWriter(&chunkWriter{ctx: ctx, out: out})
	buf := make([]byte, chunkSize)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)
		header.Method = zip.Deflate

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
		if err != nil {
			return err
		}

		_, err = io.CopyBuffer(entry, file, buf)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		return err
	})
	if err != nil {
		return err
	}

	// Writes the end-of-central-directory record; a missing one is how
	// consumers detect truncation.
	return zw.Close()
}

// chunkWriter forwards zip output into the bounded channel, copying each
// buffer because zip.Writer reuses its own.
type chunkWriter struct {
	ctx context.Context
	out chan<- []byte
}

func (cw *chunkWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	chunk := make([]byte, len(p))
	copy(chunk, p)

	select {
	case cw.out <- chunk:
		return len(p), nil
	case <-cw.ctx.Done():
		return 0, cw.ctx.Err()
	}
}
