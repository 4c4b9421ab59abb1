package report

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/model"
)

// TaxShare is the portion of collected tax attributed to one tax row.
type TaxShare struct {
	Name       string `json:"name"`
	Percentage Money  `json:"percentage"`
	Amount     Money  `json:"amount"`
}

// TaxReport distributes collected tax across the configured tax rows.
type TaxReport struct {
	Period    Range      `json:"period"`
	Breakdown []TaxShare `json:"breakdown"`
	TotalTax  Money      `json:"total_tax"`
}

// BuildTaxBreakdown builds the tax report.
//
// Each order's tax amount is split across tax rows by percentage share,
// rounded to cents, with the rounding remainder on the last row. The
// breakdown therefore sums exactly to the collected tax. With no tax rows,
// or percentages summing to 0, the breakdown is empty.
func BuildTaxBreakdown(snap Snapshot) TaxReport {
	r := TaxReport{Period: snap.Range, Breakdown: []TaxShare{}}

	collected := decimal.Zero
	for _, o := range snap.Orders {
		collected = collected.Add(o.TaxAmount)
	}
	r.TotalTax = M(collected)

	amounts := Distribute(snap.Orders, snap.Taxes)
	if amounts == nil {
		return r
	}
	for i, t := range snap.Taxes {
		r.Breakdown = append(r.Breakdown, TaxShare{
			Name:       t.Name,
			Percentage: M(t.Percentage),
			Amount:     M(amounts[i]),
		})
	}
	return r
}

// Distribute returns, for each tax row, its share of the orders' tax.
// Returns nil when there is nothing to distribute across.
func Distribute(orders []model.Order, taxes []model.Tax) []decimal.Decimal {
	sumPct := decimal.Zero
	for _, t := range taxes {
		sumPct = sumPct.Add(t.Percentage)
	}
	if len(taxes) == 0 || sumPct.IsZero() {
		return nil
	}

	amounts := make([]decimal.Decimal, len(taxes))
	for _, o := range orders {
		remaining := o.TaxAmount
		for i, t := range taxes {
			if i == len(taxes)-1 {
				amounts[i] = amounts[i].Add(remaining)
				break
			}
			share := o.TaxAmount.Mul(t.Percentage).Div(sumPct).Round(2)
			amounts[i] = amounts[i].Add(share)
			remaining = remaining.Sub(share)
		}
	}
	return amounts
}
