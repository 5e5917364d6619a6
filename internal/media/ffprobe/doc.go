// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and decodes its JSON; Parse decodes output captured
// elsewhere. CheckDuration compares a probed container against the duration
// the caller intended to produce.
package ffprobe
