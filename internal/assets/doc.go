// Package assets turns scenes into image files on disk.
//
// The Generator owns the asset cache contract: an existing file is the cache
// hit and is never rewritten unless forced, and new files only appear through
// an atomic rename so an interrupted download cannot masquerade as a cached
// image on the next run. Failed scenes are dropped with a warning; the rest of
// the batch continues.
package assets
