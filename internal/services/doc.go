// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and scene indices for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     per-item (absorbed) or stage-level (fatal to the run).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
