// Package httpapi serves read-only run history over HTTP.
//
// Routes:
//   - GET /ping
//   - GET /runs?limit=N
//   - GET /runs/{id}
//
// The server never mutates the ledger; runs are started from the CLI.
package httpapi
