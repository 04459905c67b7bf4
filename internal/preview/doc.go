// Package preview maintains the fingerprint-keyed preview image cache.
//
// Each entry is named "<model id>-<fingerprint>.jpg" so that a change to a
// model's folder contents (which changes its fingerprint) automatically
// invalidates the cached preview. The preview source is the first
// recognized image asset in the folder; models without one have no
// preview entry.
package preview
