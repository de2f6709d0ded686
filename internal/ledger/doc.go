// Package ledger persists dubbing runs and their per-language outcomes in
// SQLite.
//
// A run row is created when the pipeline starts and finalized once every
// language has reported. Each language writes its own row, carrying the stage
// it reached, any error message, and the URIs of uploaded artifacts. Writes
// retry on SQLITE_BUSY so concurrent language workers and the HTTP API can
// share the database.
package ledger
