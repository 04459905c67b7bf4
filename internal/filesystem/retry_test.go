package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestStatWithRetrySuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.stl")
	if err := os.WriteFile(path, []byte("solid"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	info, err := StatWithRetry(path, fastConfig())
	if err != nil {
		t.Fatalf("StatWithRetry failed: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Expected size 5, got %d", info.Size())
	}
}

func TestStatWithRetryNotExistNoRetry(t *testing.T) {
	start := time.Now()
	_, err := StatWithRetry(filepath.Join(t.TempDir(), "missing"), fastConfig())
	if !os.IsNotExist(err) {
		t.Fatalf("Expected not-exist error, got %v", err)
	}
	// Non-stale errors must not trigger backoff sleeps.
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Stat took %v, should not have retried", elapsed)
	}
}

func TestReadDirWithRetry(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.stl"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := ReadDirWithRetry(dir, fastConfig())
	if err != nil {
		t.Fatalf("ReadDirWithRetry failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.stl" {
		t.Errorf("Unexpected entries: %v", entries)
	}
}

func TestOpenWithRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.stl")
	if err := os.WriteFile(path, []byte("solid"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := OpenWithRetry(path, fastConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry failed: %v", err)
	}
	f.Close()
}

func TestIsStaleError(t *testing.T) {
	if !isStaleError(syscall.ESTALE) {
		t.Error("ESTALE should be stale")
	}
	if !isStaleError(&os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}) {
		t.Error("wrapped ESTALE should be stale")
	}
	if isStaleError(syscall.ENOENT) {
		t.Error("ENOENT is not stale")
	}
	if isStaleError(errors.New("other")) {
		t.Error("plain errors are not stale")
	}
	if isStaleError(nil) {
		t.Error("nil is not stale")
	}
}

func TestWithRetryRecoversAfterStale(t *testing.T) {
	calls := 0
	result, err := withRetry("stat", "/x", fastConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", syscall.ESTALE
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Expected recovery, got %v", err)
	}
	if result != "ok" || calls != 3 {
		t.Errorf("result=%q calls=%d", result, calls)
	}
}

func TestWithRetryExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := withRetry("stat", "/x", fastConfig(), func() (string, error) {
		calls++
		return "", syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("Expected ESTALE, got %v", err)
	}
	if calls != 4 {
		t.Errorf("Expected 4 attempts (1 + 3 retries), got %d", calls)
	}
}
