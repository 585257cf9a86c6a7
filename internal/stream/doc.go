// Package stream subscribes to the exchange market stream over a WebSocket
// and turns market change messages into full MarketBook snapshots.
//
// Flow:
//
//	Conn (read loop, ping/pong, stale detection)
//	  -> Client (authenticate, subscribe, reconnect with backoff)
//	  -> marketCache (one per market, folds deltas)
//	  -> events.MarketBookEvent on the handler queue
package stream
