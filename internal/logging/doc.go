// Package logging assembles structured slog loggers for dubline.
//
// It owns the console and JSON handlers, level parsing, and output routing,
// and exposes context helpers that tag log lines with run IDs, languages,
// stages, and request IDs stored by the services package. NewNop returns a
// discard logger for tests and for wiring code that cannot fail.
package logging
