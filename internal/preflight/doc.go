// Package preflight runs cheap local checks before a pipeline run spends
// image API credits: scene source, directories, free space, API key, and the
// ffmpeg binary.
package preflight
