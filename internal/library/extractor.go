package library

import (
	"crypto/md5" //nolint:gosec // change-detection fingerprint, not security
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"model-library/internal/assettypes"
	"model-library/internal/database"
	"model-library/internal/logging"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Extractor turns qualifying folders into candidate catalog records. It
// tracks assigned slugs so collisions within one scan are disambiguated
// deterministically; create a fresh Extractor per scan.
type Extractor struct {
	root  string
	slugs map[string]string // slug -> folder rel path
}

// NewExtractor creates an Extractor for one scan of the library root.
func NewExtractor(root string) *Extractor {
	return &Extractor{
		root:  root,
		slugs: make(map[string]string),
	}
}

// Extract builds a candidate ModelRecord for folder. A read failure
// anywhere in the folder's subtree fails the whole extraction; the
// reconciler treats that folder as skipped rather than deleted.
func (e *Extractor) Extract(folder Folder) (*database.ModelRecord, error) {
	assets, err := listAssets(folder.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read assets of %s: %w", folder.RelPath, err)
	}

	rec := &database.ModelRecord{
		Slug:        e.assignSlug(folder),
		Name:        folder.Name,
		Path:        filepath.ToSlash(folder.RelPath),
		Fingerprint: fingerprint(assets),
		Assets:      assets,
		Description: readSidecar(folder.AbsPath),
	}

	return rec, nil
}

// assignSlug sanitizes the folder name and appends the lowest unused
// numeric suffix if another folder already claimed the slug this scan.
func (e *Extractor) assignSlug(folder Folder) string {
	base := Slugify(folder.Name)

	slug := base
	for n := 2; ; n++ {
		owner, taken := e.slugs[slug]
		if !taken || owner == folder.RelPath {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}

	e.slugs[slug] = folder.RelPath
	return slug
}

// Slugify lowercases a folder name and collapses every run of
// non-alphanumeric characters into a single dash.
func Slugify(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "model"
	}
	return slug
}

// listAssets collects every regular file in the folder's subtree, sorted
// lexicographically by relative path.
func listAssets(dir string) ([]database.AssetFile, error) {
	var assets []database.AssetFile

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		asset := database.AssetFile{
			RelPath: filepath.ToSlash(relPath),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if ext := filepath.Ext(d.Name()); assettypes.IsModelFile(d.Name()) {
			asset.Mime = assettypes.GetMimeType(ext)
		}

		assets = append(assets, asset)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i].RelPath < assets[j].RelPath
	})

	return assets, nil
}

// fingerprint hashes the sorted (path, size, mtime) tuples of the asset
// list. Unchanged folders hash identically across runs, so a no-op refresh
// never registers a spurious update.
func fingerprint(assets []database.AssetFile) string {
	h := md5.New() //nolint:gosec // change-detection fingerprint, not security
	for _, a := range assets {
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", a.RelPath, a.Size, a.ModTime.UnixNano())
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// readSidecar returns the verbatim contents of the first recognized
// description file in the folder, or "" when none is present.
func readSidecar(dir string) string {
	for _, name := range assettypes.SidecarNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data)
		}
		if !os.IsNotExist(err) {
			logging.Warn("Failed to read sidecar %s in %s: %v", name, dir, err)
		}
	}
	return ""
}
