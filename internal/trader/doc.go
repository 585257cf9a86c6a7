// Package trader wires the exchange client, market registry, handler queue
// and control log into one host, runs the background workers against it and
// consumes the handler queue in order.
package trader
