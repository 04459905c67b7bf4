package library

import (
	"os"
	"path/filepath"
	"strings"

	"model-library/internal/assettypes"
	"model-library/internal/filesystem"
	"model-library/internal/logging"
)

// Folder describes one candidate model folder found during a walk.
type Folder struct {
	// AbsPath is the absolute path of the folder on disk.
	AbsPath string
	// RelPath is the folder's path relative to the library root.
	RelPath string
	// Name is the folder's base name.
	Name string
}

// WalkFunc is invoked once per qualifying model folder. Returning an error
// stops the walk.
type WalkFunc func(Folder) error

// Walk traverses the library root and invokes fn for every model folder: a
// directory that directly contains at least one recognized 3D-asset file.
// Traversal does not descend into a qualifying folder (its subtree belongs
// to that model), skips hidden directories, breaks symlink cycles, and
// treats unreadable directories as non-fatal.
//
// The walk is lazy and restartable: nothing is materialized up front, and
// calling Walk again performs a fresh traversal.
func Walk(root string, fn WalkFunc) error {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	// Visited set of symlink-resolved directory paths guards against cycles.
	visited := make(map[string]bool)
	return walkDir(rootAbs, rootAbs, visited, fn)
}

func walkDir(root, dir string, visited map[string]bool, fn WalkFunc) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		logging.Warn("Skipping unreadable directory %s: %v", dir, err)
		return nil
	}
	if visited[resolved] {
		logging.Warn("Symlink cycle detected at %s, terminating branch", dir)
		return nil
	}
	visited[resolved] = true

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Skipping unreadable directory %s: %v", dir, err)
		return nil
	}

	// The library root itself is never a model folder: catalog units are
	// its subdirectories.
	if dir != root && qualifies(entries) {
		relPath, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		return fn(Folder{
			AbsPath: dir,
			RelPath: relPath,
			Name:    filepath.Base(dir),
		})
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		sub := filepath.Join(dir, entry.Name())
		isDir := entry.IsDir()
		if !isDir && entry.Type()&os.ModeSymlink != 0 {
			// Follow symlinks that point at directories.
			if info, err := os.Stat(sub); err == nil && info.IsDir() {
				isDir = true
			}
		}
		if !isDir {
			continue
		}

		if err := walkDir(root, sub, visited, fn); err != nil {
			return err
		}
	}

	return nil
}

// qualifies reports whether a directory listing directly contains a
// recognized 3D-asset file.
func qualifies(entries []os.DirEntry) bool {
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if assettypes.IsModelFile(entry.Name()) {
			return true
		}
	}
	return false
}
