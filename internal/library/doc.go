// Package library scans the filesystem tree of model asset folders.
//
// Walk yields every model folder under the library root: a directory that
// directly contains at least one recognized 3D-asset file. The Extractor
// turns a folder into a candidate catalog record with a unique slug, a
// deterministic content fingerprint over its asset listing, and any sidecar
// description found alongside the assets.
package library
