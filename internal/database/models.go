package database

import "time"

// AssetFile describes one file belonging to a model folder.
type AssetFile struct {
	RelPath string    `json:"relPath"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	Mime    string    `json:"mime,omitempty"`
}

// ModelRecord is one catalog entry: a model folder and its extracted
// metadata. The ID is assigned on insert and never changes; the slug is
// unique and stable across refreshes for the same folder.
type ModelRecord struct {
	ID          int64       `json:"id"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	Fingerprint string      `json:"fingerprint"`
	Assets      []AssetFile `json:"assets"`
	Description string      `json:"description,omitempty"`
	Preview     string      `json:"preview,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ModelSummary is the list-view projection of a ModelRecord.
type ModelSummary struct {
	ID         int64  `json:"id"`
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	AssetCount int    `json:"assetCount"`
	PreviewURL string `json:"previewUrl,omitempty"`
}
