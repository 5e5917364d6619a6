// Package encoding drives ffmpeg to turn a timeline manifest into a video and
// to burn a caption track onto it.
//
// Both steps shell out through an injectable CommandRunner so tests can
// substitute a fake encoder. The Assembler stages assets in a private scratch
// directory that is removed on every exit path; the Overlay writes to a side
// file and only replaces the input video after ffmpeg succeeds.
package encoding
