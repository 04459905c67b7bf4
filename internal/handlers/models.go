package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"time"

	"model-library/internal/database"
	"model-library/internal/logging"

	"github.com/gorilla/mux"
)

// AssetView is one file of a model as presented to clients, with a URL
// under the asset prefix.
type AssetView struct {
	RelPath string    `json:"relPath"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	Mime    string    `json:"mime,omitempty"`
	URL     string    `json:"url"`
}

// ModelDetail is the full catalog entry for one model.
type ModelDetail struct {
	ID          int64       `json:"id"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Folder      string      `json:"folder"`
	Description string      `json:"description,omitempty"`
	PreviewURL  string      `json:"previewUrl,omitempty"`
	DownloadURL string      `json:"downloadUrl"`
	Assets      []AssetView `json:"assets"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ListModels returns the catalog as summaries sorted by name.
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	records, err := h.db.ListModels(r.Context())
	if err != nil {
		logging.Error("ListModels database error: %v", err)
		writeJSONError(w, "Failed to list models", http.StatusInternalServerError)
		return
	}

	summaries := make([]database.ModelSummary, 0, len(records))
	for i := range records {
		rec := &records[i]
		summaries = append(summaries, database.ModelSummary{
			ID:         rec.ID,
			Slug:       rec.Slug,
			Name:       rec.Name,
			AssetCount: len(rec.Assets),
			PreviewURL: h.previewURL(rec.Preview),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, summaries)
}

// GetModel returns the full detail for one model by slug.
func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	rec, err := h.db.GetModelBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, "Model not found", http.StatusNotFound)
			return
		}
		logging.Error("GetModel database error for %q: %v", slug, err)
		writeJSONError(w, "Failed to load model", http.StatusInternalServerError)
		return
	}

	folder := filepath.ToSlash(rec.Path)
	detail := ModelDetail{
		ID:          rec.ID,
		Slug:        rec.Slug,
		Name:        rec.Name,
		Folder:      folder,
		Description: rec.Description,
		PreviewURL:  h.previewURL(rec.Preview),
		DownloadURL: escapedPath("/api/download", folder),
		Assets:      make([]AssetView, 0, len(rec.Assets)),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}

	for _, asset := range rec.Assets {
		rel := filepath.ToSlash(asset.RelPath)
		detail.Assets = append(detail.Assets, AssetView{
			RelPath: rel,
			Size:    asset.Size,
			ModTime: asset.ModTime,
			Mime:    asset.Mime,
			URL:     escapedPath(h.assetPrefix, folder, rel),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, detail)
}

// previewURL maps a preview cache entry name to its public URL, or ""
// when the model has no preview.
func (h *Handlers) previewURL(entry string) string {
	if entry == "" {
		return ""
	}
	return escapedPath(h.cachePrefix, entry)
}

// escapedPath joins URL path segments and percent-escapes them.
func escapedPath(parts ...string) string {
	u := url.URL{Path: path.Join(parts...)}
	return u.EscapedPath()
}
