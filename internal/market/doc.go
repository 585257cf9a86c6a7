// Package market implements the Market and the Market Registry.
//
// The Market Registry:
//   - Tracks every market the trader has seen, open or closed
//   - Reopens a known market in place when its id is announced again,
//     keeping the accumulated blotter
//   - Answers aggregate queries (open ids, any live orders)
//
// A Market owns its snapshot, catalogue, closed flag and order blotter, and
// mediates every order-lifecycle call against that blotter.
package market
