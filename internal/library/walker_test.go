package library

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
)

// writeFile creates a file with parent directories as needed.
func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func collectFolders(t *testing.T, root string) []string {
	t.Helper()
	var found []string
	err := Walk(root, func(f Folder) error {
		found = append(found, f.RelPath)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	sort.Strings(found)
	return found
}

func TestWalkFindsModelFolders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "benchy", "benchy.stl"), []byte("solid"))
	writeFile(t, filepath.Join(root, "widgets", "bracket", "bracket.3mf"), []byte("x"))
	writeFile(t, filepath.Join(root, "notes", "todo.txt"), []byte("no assets here"))

	found := collectFolders(t, root)

	want := []string{"benchy", filepath.Join("widgets", "bracket")}
	if len(found) != len(want) {
		t.Fatalf("found %v, want %v", found, want)
	}
	for i := range want {
		if found[i] != want[i] {
			t.Errorf("found[%d] = %q, want %q", i, found[i], want[i])
		}
	}
}

func TestWalkDoesNotDescendIntoModelFolders(t *testing.T) {
	root := t.TempDir()
	// The nested folder holds assets too, but belongs to the outer model.
	writeFile(t, filepath.Join(root, "case", "case.stl"), []byte("solid"))
	writeFile(t, filepath.Join(root, "case", "variants", "lid.stl"), []byte("solid"))

	found := collectFolders(t, root)

	if len(found) != 1 || found[0] != "case" {
		t.Errorf("found %v, want [case]", found)
	}
}

func TestWalkSkipsHiddenDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".stash", "hidden.stl"), []byte("solid"))
	writeFile(t, filepath.Join(root, "visible", "part.obj"), []byte("v"))

	found := collectFolders(t, root)

	if len(found) != 1 || found[0] != "visible" {
		t.Errorf("found %v, want [visible]", found)
	}
}

func TestWalkSkipsUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits not enforced")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good", "part.stl"), []byte("solid"))
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "secret.stl"), []byte("solid"))
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	found := collectFolders(t, root)

	if len(found) != 1 || found[0] != "good" {
		t.Errorf("found %v, want [good]", found)
	}
}

func TestWalkSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "nested", "model", "part.stl"), []byte("solid"))

	// Point a link back at the root to create a cycle.
	if err := os.Symlink(root, filepath.Join(root, "nested", "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	found := collectFolders(t, root)

	if len(found) != 1 {
		t.Errorf("found %v, want exactly one model", found)
	}
}

func TestWalkIsRestartable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one", "a.stl"), []byte("solid"))
	writeFile(t, filepath.Join(root, "two", "b.stl"), []byte("solid"))

	first := collectFolders(t, root)
	second := collectFolders(t, root)

	if len(first) != 2 || len(second) != 2 {
		t.Errorf("walks disagree: %v vs %v", first, second)
	}
}

func TestWalkEmptyRoot(t *testing.T) {
	found := collectFolders(t, t.TempDir())
	if len(found) != 0 {
		t.Errorf("found %v in empty root", found)
	}
}
