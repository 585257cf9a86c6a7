// Package worker implements the trader's background workers.
//
// A BackgroundWorker:
//   - Waits its start delay once, then invokes its task every interval
//   - Owns a typed State that persists across invocations
//   - Receives the Host on every call rather than storing it as task state
//   - Logs and counts task errors and panics without stopping the loop
//
// Tasks provides the scheduled jobs: session keep-alive, market catalogue
// polling, account balance polling and cleared order/market polling.
package worker
