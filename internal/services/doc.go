// Package services defines shared utilities consumed by the dubbing pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, target languages, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent language and run statuses (failed vs invalid).
//   - Retry, the shared exponential-backoff loop for transient failures from
//     cloud APIs.
//
// Use these helpers when wiring new adapters so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
