// Package api provides the betting exchange REST client.
//
// Identity endpoints (session management):
//   - Interactive login: https://identitysso.betfair.com/api/login
//   - Certificate login: https://identitysso-cert.betfair.com/api/certlogin
//   - Keep alive: https://identitysso.betfair.com/api/keepAlive
//
// JSON endpoints (POST, one operation per path):
//   - Betting: https://api.betfair.com/exchange/betting/rest/v1.0/{operation}/
//   - Account: https://api.betfair.com/exchange/account/rest/v1.0/{operation}/
//
// Key operations: listMarketCatalogue, listClearedOrders, placeOrders,
// cancelOrders, updateOrders, replaceOrders, getAccountFunds
package api
