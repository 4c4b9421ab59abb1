// Package store provides SQLite-backed durable storage for the offline POS core.
//
// The store holds six record families, all scoped by restaurant (tenant):
//   - Notifications: server-originated messages, plus a delivery ledger
//   - Orders and OrderItems: written by ordering flows, read by reports
//   - Expenses and Taxes: read by reports
//   - Customers and CreditTransactions: the credit ledger and its projection
//
// # Critical Patterns
//
// Tenant scoping:
//   - Every table is keyed by (restaurant_id, id)
//   - Every query filters by restaurant_id; an empty tenant is rejected with
//     NOT_AUTHENTICATED before touching the database
//
// Idempotent writes:
//   - Upserts use ON CONFLICT ... DO UPDATE and replace the full record
//   - RecordDelivery uses ON CONFLICT DO NOTHING and reports whether a row
//     was inserted, which is the delivery idempotency check
//
// Single commit unit:
//   - WithTx runs a function inside one SQLite transaction; the credit
//     ledger appends a transaction and updates the cached balance through
//     it so neither write is ever observed alone
//   - Customers.credit_balance is never written by UpsertCustomer
//
// Deterministic reads:
//   - Ledger rows are returned in append order (seq); created_at never
//     decreases along it
//   - Lists return empty slices, never nil
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: cascade order items and ledger rows
//   - _txlock=immediate: transactions take the write lock at BEGIN
package store
