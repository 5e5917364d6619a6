// Package workflow drives a single reelsmith run from scene document to
// captioned video.
//
// The Runner walks a fixed sequence of states: Start, Extracting, Generating,
// Assembling, Captioning and Done. Each state hands its output to the next as
// plain values; there is no shared mutable pipeline context. Per-scene
// failures during generation drop the scene and are reported as warnings.
// Encoder failures during assembly move the run to Aborted, which is the only
// state the Runner aborts from. Caption and archive failures are
// PartialPipelineWarnings that keep the un-captioned video.
//
// Every transition is logged with the run ID and, when a ledger is attached,
// recorded in the run history.
package workflow
