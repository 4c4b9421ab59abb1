// Package report builds sales, profit and loss, expense, tax and GST
// reports from a read-only snapshot of the local store.
//
// Building a report is a pure transform over a Snapshot. Dates are
// inclusive YYYY-MM-DD strings compared lexically; an order belongs to the
// range when the calendar date of its created_at, in the generator's time
// zone, falls inside it. Money renders with two decimals everywhere.
//
// Exports are CSV (UTF-8 with a leading BOM) or JSON. CSV files are row
// oriented: section titles are bare single-field rows and sections are
// separated by blank rows. GST JSON follows the GSTN portal field names and
// carries no BOM.
package report
