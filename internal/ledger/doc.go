// Package ledger persists run history in SQLite: one row per pipeline run and
// one row per scene outcome within it.
//
// The database is written by the pipeline and read by the history command and
// the HTTP API. Schema changes bump schemaVersion; older databases must be
// deleted rather than migrated.
package ledger
