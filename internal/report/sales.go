package report

import (
	"github.com/shopspring/decimal"
)

// SalesRow is one order of the sales report.
type SalesRow struct {
	Date          string `json:"date"`
	OrderID       string `json:"order_id"`
	Amount        Money  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
}

// SalesSummary totals the sales report.
type SalesSummary struct {
	TotalOrders       int   `json:"total_orders"`
	TotalRevenue      Money `json:"total_revenue"`
	AverageOrderValue Money `json:"average_order_value"`
}

// SalesReport lists every order in range.
type SalesReport struct {
	Period  Range        `json:"period"`
	Rows    []SalesRow   `json:"rows"`
	Summary SalesSummary `json:"summary"`
}

// BuildSales builds the sales report. The average is 0 when there are no
// orders.
func BuildSales(snap Snapshot) SalesReport {
	r := SalesReport{Period: snap.Range, Rows: []SalesRow{}}
	total := decimal.Zero
	for _, o := range snap.Orders {
		id := o.OrderNumber
		if id == "" {
			id = o.ID
		}
		r.Rows = append(r.Rows, SalesRow{
			Date:          localDate(o.CreatedAt, snap.Location),
			OrderID:       id,
			Amount:        M(o.TotalAmount),
			PaymentMethod: o.PaymentMethod,
			Status:        o.Status,
		})
		total = total.Add(o.TotalAmount)
	}

	avg := decimal.Zero
	if n := len(snap.Orders); n > 0 {
		avg = total.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	r.Summary = SalesSummary{
		TotalOrders:       len(snap.Orders),
		TotalRevenue:      M(total),
		AverageOrderValue: M(avg),
	}
	return r
}

// ProfitLoss is the profit and loss statement.
type ProfitLoss struct {
	Period        Range `json:"period"`
	TotalRevenue  Money `json:"total_revenue"`
	TotalExpenses Money `json:"total_expenses"`
	NetProfit     Money `json:"net_profit"`

	// ProfitMargin is a percentage; 0 when revenue is 0.
	ProfitMargin Money `json:"profit_margin"`
}

// BuildProfitLoss builds the profit and loss statement.
func BuildProfitLoss(snap Snapshot) ProfitLoss {
	revenue := decimal.Zero
	for _, o := range snap.Orders {
		revenue = revenue.Add(o.TotalAmount)
	}
	expenses := decimal.Zero
	for _, e := range snap.Expenses {
		expenses = expenses.Add(e.Amount)
	}
	net := revenue.Sub(expenses)

	return ProfitLoss{
		Period:        snap.Range,
		TotalRevenue:  M(revenue),
		TotalExpenses: M(expenses),
		NetProfit:     M(net),
		ProfitMargin:  M(percent(net, revenue)),
	}
}

// CategoryTotal is one category of the expense report.
type CategoryTotal struct {
	Category   string `json:"category"`
	Amount     Money  `json:"amount"`
	Percentage Money  `json:"percentage"`
}

// ExpenseRow is one expense of the expense report.
type ExpenseRow struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Vendor      string `json:"vendor"`
	Description string `json:"description"`
	Amount      Money  `json:"amount"`
}

// ExpenseReport groups expenses by category.
type ExpenseReport struct {
	Period     Range           `json:"period"`
	Categories []CategoryTotal `json:"categories"`
	Rows       []ExpenseRow    `json:"rows"`
	Total      Money           `json:"total"`
}

// BuildExpenses builds the expense report. Categories appear in order of
// first appearance; rows keep snapshot order.
func BuildExpenses(snap Snapshot) ExpenseReport {
	r := ExpenseReport{Period: snap.Range, Categories: []CategoryTotal{}, Rows: []ExpenseRow{}}

	index := make(map[string]int)
	var subtotals []decimal.Decimal
	total := decimal.Zero
	for _, e := range snap.Expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(r.Categories)
			index[e.Category] = i
			r.Categories = append(r.Categories, CategoryTotal{Category: e.Category})
			subtotals = append(subtotals, decimal.Zero)
		}
		subtotals[i] = subtotals[i].Add(e.Amount)
		total = total.Add(e.Amount)

		r.Rows = append(r.Rows, ExpenseRow{
			Date:        e.Date,
			Category:    e.Category,
			Vendor:      deref(e.VendorName),
			Description: deref(e.Description),
			Amount:      M(e.Amount),
		})
	}

	for i := range r.Categories {
		r.Categories[i].Amount = M(subtotals[i])
		r.Categories[i].Percentage = M(percent(subtotals[i], total))
	}
	r.Total = M(total)
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
