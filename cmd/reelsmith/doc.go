// Package main hosts the reelsmith CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once, builds the
// structured logger, and hands off to the internal packages: run drives the
// workflow, scenes previews extraction, history and serve read the run ledger,
// and deps reports encoder availability. Keep this package thin; behaviour
// belongs in internal/ and is surfaced here through flags.
package main
