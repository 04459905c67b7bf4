package reconciler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"model-library/internal/database"
	"model-library/internal/filesystem"
	"model-library/internal/library"
	"model-library/internal/logging"
	"model-library/internal/metrics"
	"model-library/internal/preview"
	"model-library/internal/workers"
)

// ErrRefreshInProgress is returned when a refresh is requested while
// another one is still running. Callers may simply retry.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Decision is the reconciliation outcome for one catalog entry or
// candidate, computed before any mutation is applied.
type Decision string

const (
	DecisionInsert     Decision = "insert"
	DecisionUpdate     Decision = "update"
	DecisionDelete     Decision = "delete"
	DecisionUnchanged  Decision = "unchanged"
	DecisionSkipFailed Decision = "skip_failed"
)

// change pairs a decision with the rows it applies to.
type change struct {
	decision  Decision
	candidate *database.ModelRecord // nil for delete
	existing  *database.ModelRecord // nil for insert
}

// Summary reports what a completed refresh did.
type Summary struct {
	Inserted  int           `json:"inserted"`
	Updated   int           `json:"updated"`
	Deleted   int           `json:"deleted"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"-"`
}

// Reconciler aligns the persisted catalog with the current filesystem
// state. Runs are serialized by a lock owned by the reconciler; a
// concurrent request fails fast with ErrRefreshInProgress.
type Reconciler struct {
	db         *database.Database
	previews   *preview.Cache
	libraryDir string
	pool       *workers.Pool

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// New creates a Reconciler for the given library root. pool bounds the
// blocking scan work; previews may be nil to disable preview maintenance.
func New(db *database.Database, previews *preview.Cache, libraryDir string, pool *workers.Pool) *Reconciler {
	return &Reconciler{
		db:         db,
		previews:   previews,
		libraryDir: libraryDir,
		pool:       pool,
	}
}

// tryStart attempts to mark a refresh as running, returns false if one is
// already in flight.
func (r *Reconciler) tryStart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *Reconciler) finish() {
	r.mu.Lock()
	r.running = false
	r.lastRun = time.Now()
	r.mu.Unlock()
}

// IsRunning reports whether a refresh is currently in flight.
func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastRun returns the completion time of the most recent refresh.
func (r *Reconciler) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

// candidate is one extracted (or failed) model folder from the scan phase.
type candidate struct {
	folder library.Folder
	record *database.ModelRecord
	err    error
}

// Refresh runs one full reconciliation: scan, decide, apply in a single
// transaction, then maintain the preview cache. Either the whole run
// commits or the prior catalog state is retained unchanged.
func (r *Reconciler) Refresh(ctx context.Context) (Summary, error) {
	if !r.tryStart() {
		return Summary{}, ErrRefreshInProgress
	}
	defer r.finish()

	if err := r.pool.Acquire(ctx); err != nil {
		return Summary{}, err
	}
	defer r.pool.Release()

	metrics.RefreshIsRunning.Set(1)
	defer metrics.RefreshIsRunning.Set(0)
	metrics.RefreshRunsTotal.Inc()

	start := time.Now()
	logging.Info("Starting library refresh...")

	candidates, err := r.scan()
	if err != nil {
		metrics.RefreshErrors.Inc()
		return Summary{}, fmt.Errorf("library scan failed: %w", err)
	}

	snapshot, err := r.db.ListModels(ctx)
	if err != nil {
		metrics.RefreshErrors.Inc()
		return Summary{}, fmt.Errorf("failed to load catalog snapshot: %w", err)
	}

	changes := r.decide(candidates, snapshot)

	summary, err := r.apply(ctx, changes)
	if err != nil {
		metrics.RefreshErrors.Inc()
		return Summary{}, err
	}

	r.maintainPreviews(ctx, changes)

	summary.Duration = time.Since(start)
	metrics.RefreshLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.RefreshLastRunDuration.Set(summary.Duration.Seconds())

	logging.Info("Refresh complete: %d inserted, %d updated, %d deleted, %d unchanged, %d skipped in %v",
		summary.Inserted, summary.Updated, summary.Deleted, summary.Unchanged, summary.Skipped, summary.Duration)

	return summary, nil
}

// scan walks the library root and extracts a candidate record per model
// folder. Extraction failures are carried as failed candidates rather than
// aborting the scan.
func (r *Reconciler) scan() ([]candidate, error) {
	extractor := library.NewExtractor(r.libraryDir)

	var candidates []candidate
	err := library.Walk(r.libraryDir, func(folder library.Folder) error {
		rec, err := extractor.Extract(folder)
		if err != nil {
			logging.Warn("Extraction failed for %s, excluding from this refresh: %v", folder.RelPath, err)
			candidates = append(candidates, candidate{folder: folder, err: err})
			return nil
		}
		candidates = append(candidates, candidate{folder: folder, record: rec})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Debug("Scan found %d candidate folders", len(candidates))
	return candidates, nil
}

// decide computes the full change list in a single pass before any
// mutation, so the transaction boundary and audit logging stay simple.
func (r *Reconciler) decide(candidates []candidate, snapshot []database.ModelRecord) []change {
	bySlug := make(map[string]*database.ModelRecord, len(snapshot))
	byPath := make(map[string]*database.ModelRecord, len(snapshot))
	for i := range snapshot {
		bySlug[snapshot[i].Slug] = &snapshot[i]
		byPath[snapshot[i].Path] = &snapshot[i]
	}

	seen := make(map[int64]bool)
	failedPaths := make(map[string]bool)

	var changes []change

	for _, c := range candidates {
		if c.err != nil {
			// Do not mark seen and do not delete: a transient read error
			// must never destroy valid catalog data.
			relPath := filepath.ToSlash(c.folder.RelPath)
			failedPaths[relPath] = true
			if existing, ok := byPath[relPath]; ok {
				seen[existing.ID] = true
				changes = append(changes, change{decision: DecisionSkipFailed, existing: existing})
			} else {
				changes = append(changes, change{decision: DecisionSkipFailed})
			}
			continue
		}

		existing, ok := bySlug[c.record.Slug]
		if !ok {
			changes = append(changes, change{decision: DecisionInsert, candidate: c.record})
			continue
		}

		seen[existing.ID] = true
		// A rename that keeps the slug (case-only, for instance) leaves
		// the fingerprint intact but moves the folder; the stored path
		// feeds asset and download URLs, so it must follow.
		if existing.Fingerprint == c.record.Fingerprint && existing.Path == c.record.Path {
			changes = append(changes, change{decision: DecisionUnchanged, candidate: c.record, existing: existing})
		} else {
			changes = append(changes, change{decision: DecisionUpdate, candidate: c.record, existing: existing})
		}
	}

	// Snapshot entries neither seen nor excluded by a failure are confirmed
	// gone, unless the folder still exists but could not be read this run.
	for i := range snapshot {
		existing := &snapshot[i]
		if seen[existing.ID] || failedPaths[existing.Path] {
			continue
		}

		if r.folderStillPresent(existing.Path) {
			logging.Warn("Folder %s still present but unreadable this scan, retaining record %q", existing.Path, existing.Slug)
			changes = append(changes, change{decision: DecisionSkipFailed, existing: existing})
			continue
		}

		changes = append(changes, change{decision: DecisionDelete, existing: existing})
	}

	return changes
}

// folderStillPresent distinguishes a genuinely removed folder from one the
// walk failed to reach (permission or I/O error).
func (r *Reconciler) folderStillPresent(relPath string) bool {
	_, err := filesystem.StatWithRetry(filepath.Join(r.libraryDir, filepath.FromSlash(relPath)), filesystem.DefaultRetryConfig())
	if err == nil {
		return true
	}
	return !os.IsNotExist(err)
}

// apply executes the change list inside a single transaction.
func (r *Reconciler) apply(ctx context.Context, changes []change) (Summary, error) {
	var summary Summary

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return summary, fmt.Errorf("catalog store unavailable: %w", err)
	}

	for i := range changes {
		ch := &changes[i]
		metrics.RefreshDecisionsTotal.WithLabelValues(string(ch.decision)).Inc()

		switch ch.decision {
		case DecisionInsert:
			id, insErr := r.db.InsertModel(tx, ch.candidate)
			if insErr != nil {
				err = fmt.Errorf("failed to insert %q: %w", ch.candidate.Slug, insErr)
				break
			}
			ch.candidate.ID = id
			summary.Inserted++
			logging.Debug("Inserted model %q (id %d)", ch.candidate.Slug, id)

		case DecisionUpdate:
			ch.candidate.ID = ch.existing.ID
			if upErr := r.db.UpdateModel(tx, ch.existing.ID, ch.candidate); upErr != nil {
				err = fmt.Errorf("failed to update %q: %w", ch.candidate.Slug, upErr)
				break
			}
			summary.Updated++
			logging.Debug("Updated model %q (id %d)", ch.candidate.Slug, ch.existing.ID)

		case DecisionDelete:
			if delErr := r.db.DeleteModel(tx, ch.existing.ID); delErr != nil {
				err = fmt.Errorf("failed to delete %q: %w", ch.existing.Slug, delErr)
				break
			}
			summary.Deleted++
			logging.Debug("Deleted model %q (id %d)", ch.existing.Slug, ch.existing.ID)

		case DecisionUnchanged:
			ch.candidate.ID = ch.existing.ID
			summary.Unchanged++

		case DecisionSkipFailed:
			summary.Skipped++
		}

		if err != nil {
			break
		}
	}

	if endErr := r.db.End(tx, err); endErr != nil {
		return Summary{}, fmt.Errorf("refresh transaction failed: %w", endErr)
	}

	return summary, nil
}

// maintainPreviews runs after a committed refresh: ensure entries for
// inserted/updated records, purge entries of deleted ones. Preview
// failures are logged, never fatal to the refresh.
func (r *Reconciler) maintainPreviews(ctx context.Context, changes []change) {
	if r.previews == nil {
		return
	}

	for i := range changes {
		ch := &changes[i]
		switch ch.decision {
		case DecisionInsert, DecisionUpdate, DecisionUnchanged:
			entry, err := r.previews.Ensure(ch.candidate)
			if err != nil {
				logging.Warn("Preview generation failed for %q: %v", ch.candidate.Slug, err)
				continue
			}
			current := ch.candidate.Preview
			if ch.existing != nil {
				current = ch.existing.Preview
			}
			if entry != current {
				if err := r.db.SetPreview(ctx, ch.candidate.ID, entry); err != nil {
					logging.Warn("Failed to record preview for %q: %v", ch.candidate.Slug, err)
				}
			}

		case DecisionDelete:
			r.previews.Purge(ch.existing.ID)
		}
	}
}
