// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Background worker runs, failures and durations
//   - Handler queue depth and published events by kind
//   - Execution instructions by operation and report status
//   - Control log batch writes and errors
//   - Market stream messages and reconnects
package metrics
