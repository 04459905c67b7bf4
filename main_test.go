package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"model-library/internal/archive"
	"model-library/internal/database"
	"model-library/internal/handlers"
	"model-library/internal/preview"
	"model-library/internal/reconciler"
	"model-library/internal/startup"
	"model-library/internal/upload"
	"model-library/internal/workers"
)

func testConfig(t *testing.T) *startup.Config {
	t.Helper()
	tmpDir := t.TempDir()
	config := &startup.Config{
		LibraryDir:      filepath.Join(tmpDir, "library"),
		DataDir:         tmpDir,
		AssetPrefix:     "/3d",
		CachePrefix:     "/cache",
		DatabasePath:    filepath.Join(tmpDir, "db.sqlite3"),
		PreviewCacheDir: filepath.Join(tmpDir, "preview_cache"),
		UploadCacheDir:  filepath.Join(tmpDir, "upload_cache"),
	}
	for _, dir := range []string{config.LibraryDir, config.PreviewCacheDir, config.UploadCacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return config
}

func testRouter(t *testing.T, config *startup.Config) http.Handler {
	t.Helper()

	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	previews := preview.NewCache(config.LibraryDir, config.PreviewCacheDir)
	rec := reconciler.New(db, previews, config.LibraryDir, workers.NewPool("scan", 2))
	streamer := archive.NewStreamer(config.LibraryDir, workers.NewPool("archive", 2))
	receiver := upload.NewReceiver(config.LibraryDir, config.UploadCacheDir)
	h := handlers.New(db, rec, streamer, receiver, config)

	return setupRouter(h, config)
}

func TestRouterHealthz(t *testing.T) {
	router := testRouter(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestRouterUnknownPathIs404(t *testing.T) {
	router := testRouter(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/no/such/route", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRouterServesLibraryAssets(t *testing.T) {
	config := testConfig(t)
	router := testRouter(t, config)

	dir := filepath.Join(config.LibraryDir, "widget")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "part.stl"), []byte("solid part"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/3d/widget/part.stl", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "solid part" {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
}

func TestRouterDownloadNestedFolder(t *testing.T) {
	config := testConfig(t)
	router := testRouter(t, config)

	dir := filepath.Join(config.LibraryDir, "group", "widget")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "part.stl"), []byte("solid part"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/download/group/widget", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for nested folder, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Expected zip content type, got %q", ct)
	}
}

func TestRouterMethodMismatch(t *testing.T) {
	router := testRouter(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/refresh", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		t.Error("GET on a POST route should not succeed")
	}
}
