// Package logging provides structured JSON logging with file rotation for
// the recall engine. Every component that degrades non-fatally (embedder
// load failure, missing redaction catalog, dense row mismatch) logs once
// through the shared logger instead of writing to stderr directly.
package logging
