// Package harness runs YAML scenarios against the real POS core.
//
// Each scenario gets a fresh in-memory store, an in-memory remote feed, a
// recording deliverer, a deterministic clock and sequential ledger ids, so
// the same scenario always produces the same trace.
//
// # Scenario Format
//
//	name: credit_then_overpay
//	description: "A payment larger than the balance is rejected"
//	restaurant: rest-1          # optional, default rest-1
//	read_policy: remote-wins    # optional
//	delete_policy: warn         # optional
//	setup:
//	  - action: customer.upsert
//	    args: { id: c1, name: Asha }
//	flow:
//	  - invoke: ledger.add_credit
//	    args: { customer: c1, amount: "500" }
//	    expect:
//	      case: ok
//	      result: { balance_after: "500.00" }
//	  - invoke: ledger.record_payment
//	    args: { customer: c1, amount: "600" }
//	    expect: { case: EXCEEDS_BALANCE }
//	assertions:
//	  - type: balance
//	    customer: c1
//	    equals: "500.00"
//	  - type: ledger_valid
//	    customer: c1
//
// A step's case is "ok" on success or the error code it failed with.
// Results are flattened to dotted keys ("b2cs.taxable_value") with string
// values; expected values match when they are equal as text or as decimals.
// A flow step without an expect clause must succeed.
//
// # Actions
//
//   - customer.upsert {id, name, mobile}
//   - customer.delete {customer}
//   - ledger.add_credit, ledger.record_payment {customer, amount, description}
//   - ledger.verify, ledger.recompute {customer}
//   - remote.set {notifications: [{id, title, message, type, is_read, created_at}]}
//   - remote.fail {message}, remote.restore {}
//   - notify.sync {}, notify.mark_read {id}, notify.mark_all_read {}
//   - session.logout {}
//   - order.upsert {id, order_number, status, total, tax, payment_method, created_at, items}
//   - expense.upsert {id, category, amount, date, vendor, description}
//   - tax.upsert {id, name, percentage}
//   - report.generate {kind, from, to}
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with matching args
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - balance: a customer's cached balance equals a value
//   - ledger_valid: a customer's ledger satisfies every invariant
//   - unread_count, delivery_count, pushed_count: counters equal N
//   - final_state: a stored record (notifications, customers, orders)
//     matches expected fields
package harness
