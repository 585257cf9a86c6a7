// Package model defines the domain value types shared across the trader.
//
// Conventions:
//   - Prices, sizes and money: decimal.Decimal
//   - Timestamps: time.Time in UTC; the zero value means "not provided"
//   - IDs: string market ids (e.g. "1.234567"), int64 selection ids
package model
