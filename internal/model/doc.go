// Package model provides the record types and error taxonomy shared by the
// offline POS core.
//
// This package contains type definitions and validation only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Every record carries RestaurantID (the tenant key); no package keeps an
//     ambient "current tenant"
//   - Money is decimal.Decimal, never float64
//   - Timestamps are stored in UTC
//   - Customer.CreditBalance is a projection of the credit ledger and is only
//     written by the ledger through a store transaction
package model
