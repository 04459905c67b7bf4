package reconciler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"model-library/internal/database"
	"model-library/internal/preview"
	"model-library/internal/workers"
)

type fixture struct {
	db       *database.Database
	rec      *Reconciler
	libDir   string
	cacheDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	libDir := t.TempDir()
	cacheDir := t.TempDir()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "db.sqlite3"))
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	previews := preview.NewCache(libDir, cacheDir)
	pool := workers.NewPool("scan", 2)

	return &fixture{
		db:       db,
		rec:      New(db, previews, libDir, pool),
		libDir:   libDir,
		cacheDir: cacheDir,
	}
}

func (f *fixture) writeFile(t *testing.T, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(f.libDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func (f *fixture) refresh(t *testing.T) Summary {
	t.Helper()
	summary, err := f.rec.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	return summary
}

func TestRefreshInsertsNewModels(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "benchy/benchy.stl", []byte("solid"))
	f.writeFile(t, "bracket/bracket.3mf", []byte("x"))

	summary := f.refresh(t)

	if summary.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", summary.Inserted)
	}

	records, err := f.db.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("catalog has %d records, want 2", len(records))
	}
}

func TestRefreshIdempotent(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "benchy/benchy.stl", []byte("solid"))

	f.refresh(t)

	first, _ := f.db.ListModels(context.Background())

	summary := f.refresh(t)
	if summary.Inserted != 0 || summary.Updated != 0 || summary.Deleted != 0 {
		t.Errorf("second refresh mutated catalog: %+v", summary)
	}
	if summary.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1", summary.Unchanged)
	}

	second, _ := f.db.ListModels(context.Background())
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unexpected catalog sizes %d, %d", len(first), len(second))
	}
	if first[0].ID != second[0].ID || first[0].Fingerprint != second[0].Fingerprint {
		t.Error("catalog changed across no-op refreshes")
	}
}

func TestRefreshUpdateInPlace(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "benchy/benchy.stl", []byte("solid"))

	f.refresh(t)
	before, _ := f.db.GetModelBySlug(context.Background(), "benchy")

	// Change the file's size and push mtime forward so the fingerprint moves.
	f.writeFile(t, "benchy/benchy.stl", []byte("solid benchy, but longer"))
	future := time.Now().Add(2 * time.Second)
	os.Chtimes(filepath.Join(f.libDir, "benchy/benchy.stl"), future, future)

	summary := f.refresh(t)
	if summary.Updated != 1 {
		t.Errorf("Updated = %d, want 1", summary.Updated)
	}

	after, _ := f.db.GetModelBySlug(context.Background(), "benchy")
	if after.ID != before.ID {
		t.Errorf("id changed on update: %d != %d", after.ID, before.ID)
	}
	if after.Fingerprint == before.Fingerprint {
		t.Error("fingerprint should have changed")
	}
}

func TestRefreshFollowsRenameKeepingSlug(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "Benchy/benchy.stl", []byte("solid"))

	f.refresh(t)
	before, _ := f.db.GetModelBySlug(context.Background(), "benchy")

	// A case-only rename keeps the slug and the fingerprint (asset paths
	// inside the folder are unchanged) but moves the folder on disk.
	if err := os.Rename(filepath.Join(f.libDir, "Benchy"), filepath.Join(f.libDir, "benchy")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	summary := f.refresh(t)
	if summary.Updated != 1 {
		t.Errorf("Updated = %d, want 1", summary.Updated)
	}

	after, _ := f.db.GetModelBySlug(context.Background(), "benchy")
	if after.ID != before.ID {
		t.Errorf("id changed on rename: %d != %d", after.ID, before.ID)
	}
	if after.Path != "benchy" {
		t.Errorf("Path = %q, want %q", after.Path, "benchy")
	}
	if after.Fingerprint != before.Fingerprint {
		t.Error("fingerprint should be unchanged by a rename")
	}
}

func TestRefreshDeletesRemovedFolder(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "gone/part.stl", []byte("solid"))
	f.writeFile(t, "kept/part.stl", []byte("solid"))

	f.refresh(t)

	if err := os.RemoveAll(filepath.Join(f.libDir, "gone")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	summary := f.refresh(t)
	if summary.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", summary.Deleted)
	}

	if _, err := f.db.GetModelBySlug(context.Background(), "gone"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected gone to be deleted, got %v", err)
	}
	if _, err := f.db.GetModelBySlug(context.Background(), "kept"); err != nil {
		t.Errorf("kept should survive: %v", err)
	}
}

func TestRefreshSkipOnErrorIsNonDestructive(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission bits not enforced for root")
	}

	f := newFixture(t)
	f.writeFile(t, "flaky/part.stl", []byte("solid"))
	f.writeFile(t, "gone/part.stl", []byte("solid"))

	f.refresh(t)

	// Make one folder unreadable and genuinely remove the other.
	locked := filepath.Join(f.libDir, "flaky")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })
	os.RemoveAll(filepath.Join(f.libDir, "gone"))

	summary := f.refresh(t)

	// The unreadable folder's record is retained while the removed folder
	// is still deleted in the same run.
	if summary.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", summary.Deleted)
	}
	if summary.Skipped == 0 {
		t.Error("expected at least one skipped entry")
	}

	if _, err := f.db.GetModelBySlug(context.Background(), "flaky"); err != nil {
		t.Errorf("record for unreadable folder should be retained: %v", err)
	}
	if _, err := f.db.GetModelBySlug(context.Background(), "gone"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("removed folder should still be deleted, got %v", err)
	}

	// A clean subsequent scan picks the folder back up unchanged.
	os.Chmod(locked, 0o755)
	after := f.refresh(t)
	if after.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1 after recovery", after.Unchanged)
	}
}

func TestRefreshMutualExclusion(t *testing.T) {
	f := newFixture(t)

	if !f.rec.tryStart() {
		t.Fatal("tryStart should succeed when idle")
	}

	_, err := f.rec.Refresh(context.Background())
	if !errors.Is(err, ErrRefreshInProgress) {
		t.Errorf("expected ErrRefreshInProgress, got %v", err)
	}

	f.rec.finish()

	if _, err := f.rec.Refresh(context.Background()); err != nil {
		t.Errorf("Refresh after finish failed: %v", err)
	}
}

func TestRefreshSlugStableAcrossRuns(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "a/Bracket/part.stl", []byte("solid"))
	f.writeFile(t, "b/Bracket/part.stl", []byte("solid"))

	f.refresh(t)
	first, _ := f.db.ListModels(context.Background())

	f.refresh(t)
	second, _ := f.db.ListModels(context.Background())

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("catalog sizes %d, %d, want 2", len(first), len(second))
	}
	for i := range first {
		if first[i].Slug != second[i].Slug || first[i].ID != second[i].ID {
			t.Errorf("slug/id drifted across refreshes: %+v vs %+v", first[i], second[i])
		}
	}
}

func TestRefreshPurgesPreviewsOfDeletedModels(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "gone/part.stl", []byte("solid"))

	f.refresh(t)
	rec, _ := f.db.GetModelBySlug(context.Background(), "gone")

	// Plant a cache entry as if a preview had been generated.
	entry := preview.EntryName(rec.ID, rec.Fingerprint)
	os.WriteFile(filepath.Join(f.cacheDir, entry), []byte("jpeg"), 0o644)

	os.RemoveAll(filepath.Join(f.libDir, "gone"))
	f.refresh(t)

	if _, err := os.Stat(filepath.Join(f.cacheDir, entry)); !os.IsNotExist(err) {
		t.Error("preview entries of a deleted model should be purged")
	}
}

func TestConcurrentReadsDuringRefresh(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 20; i++ {
		f.writeFile(t, filepath.Join("model-"+string(rune('a'+i)), "part.stl"), []byte("solid"))
	}

	f.refresh(t)

	// Reads while a refresh runs must observe a full snapshot, never a
	// partially applied one.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			records, err := f.db.ListModels(context.Background())
			if err != nil {
				t.Errorf("ListModels during refresh failed: %v", err)
				return
			}
			if len(records) != 20 {
				t.Errorf("observed partial catalog: %d records", len(records))
				return
			}
		}
	}()

	f.refresh(t)
	<-done
}
