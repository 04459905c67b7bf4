// Package workers provides CPU-aware worker counting and a bounded slot
// pool used to keep blocking filesystem and compression work separate from
// lightweight request dispatch.
package workers
