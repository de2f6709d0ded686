// Command dubline dubs a source video into the configured target languages.
//
// Highlights:
//   - run and language execute the dubbing pipeline from the terminal
//   - chunk and align expose the chunker and duration aligner on local inputs
//   - runs list and runs show read the run ledger
//   - serve starts the HTTP API with Prometheus metrics
//   - config init and config validate manage the TOML configuration and
//     report missing external binaries
//   - test-notify sends a test ntfy notification
package main
