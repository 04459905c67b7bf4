// Package reconciler aligns the persisted model catalog with the current
// filesystem state of the library root.
//
// A refresh runs in phases: scan the library, compute the full change list
// (insert, update, delete, unchanged, skip-failed) against a catalog
// snapshot, apply it in one transaction, then maintain the preview cache.
// A folder whose extraction fails is excluded from the run and its
// pre-existing record is retained, so a transient read error can delay a
// deletion but never cause data loss. Runs are mutually exclusive;
// concurrent refresh requests fail fast.
package reconciler
