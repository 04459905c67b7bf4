package preview

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"model-library/internal/assettypes"
	"model-library/internal/database"
	"model-library/internal/logging"
	"model-library/internal/metrics"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // webp decode support
)

const (
	previewWidth  = 512
	previewHeight = 512
	jpegQuality   = 80
)

// Cache materializes and invalidates per-model preview images. An entry is
// keyed by (model id, fingerprint); a fingerprint mismatch makes it stale.
type Cache struct {
	libraryDir string
	cacheDir   string
	mu         sync.Mutex
}

// NewCache creates a preview cache rooted at cacheDir for models under
// libraryDir.
func NewCache(libraryDir, cacheDir string) *Cache {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		logging.Warn("Failed to create preview cache dir: %v", err)
	}
	return &Cache{
		libraryDir: libraryDir,
		cacheDir:   cacheDir,
	}
}

// EntryName returns the cache file name for a model id and fingerprint.
func EntryName(id int64, fingerprint string) string {
	return fmt.Sprintf("%d-%s.jpg", id, fingerprint)
}

// Ensure lazily materializes the preview entry for rec's current
// fingerprint and removes entries for older fingerprints of the same model.
// It returns the entry file name, or "" when the folder holds no image
// asset (which is not an error).
func (c *Cache) Ensure(rec *database.ModelRecord) (string, error) {
	entry := EntryName(rec.ID, rec.Fingerprint)
	entryPath := filepath.Join(c.cacheDir, entry)

	if _, err := os.Stat(entryPath); err == nil {
		c.evictStale(rec.ID, entry)
		return entry, nil
	}

	source := c.findImageAsset(rec)
	if source == "" {
		metrics.PreviewGenerationsTotal.WithLabelValues("no_image").Inc()
		c.evictStale(rec.ID, "")
		return "", nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another request may have generated it while we waited for the lock.
	if _, err := os.Stat(entryPath); err == nil {
		return entry, nil
	}

	img, err := imaging.Open(source, imaging.AutoOrientation(true))
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to decode preview source %s: %w", source, err)
	}

	thumb := imaging.Fit(img, previewWidth, previewHeight, imaging.Lanczos)

	out, err := os.Create(entryPath)
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to create preview entry: %w", err)
	}

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		out.Close()
		os.Remove(entryPath)
		metrics.PreviewGenerationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	metrics.PreviewGenerationsTotal.WithLabelValues("success").Inc()
	logging.Debug("Preview cached: %s", entry)

	c.evictStale(rec.ID, entry)
	return entry, nil
}

// Purge removes every cache entry belonging to a model id. Called when the
// reconciler deletes the owning record.
func (c *Cache) Purge(id int64) {
	c.evictStale(id, "")
}

// evictStale removes all entries for id except keep (keep may be "").
func (c *Cache) evictStale(id int64, keep string) {
	prefix := fmt.Sprintf("%d-", id)

	entries, err := os.ReadDir(c.cacheDir)
	if err != nil {
		logging.Warn("Failed to read preview cache dir: %v", err)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || name == keep {
			continue
		}
		if err := os.Remove(filepath.Join(c.cacheDir, name)); err != nil {
			logging.Warn("Failed to remove stale preview %s: %v", name, err)
			continue
		}
		metrics.PreviewEvictionsTotal.Inc()
		logging.Debug("Removed stale preview: %s", name)
	}
}

// findImageAsset returns the absolute path of the first recognized image
// asset in the model's listing, or "".
func (c *Cache) findImageAsset(rec *database.ModelRecord) string {
	for _, asset := range rec.Assets {
		if assettypes.IsImageFile(asset.RelPath) {
			return filepath.Join(c.libraryDir, filepath.FromSlash(rec.Path), filepath.FromSlash(asset.RelPath))
		}
	}
	return ""
}
