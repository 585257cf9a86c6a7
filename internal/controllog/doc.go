// Package controllog records the trader's synchronization results outside
// the handler queue.
//
// Sinks:
//   - Writer: batches entries into the control_log PostgreSQL table
//   - LogSink: writes one structured log line per entry
//
// Entries are append-only; the payload column holds the event as JSON.
package controllog
