package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/offpos/internal/model"
)

// Kind names a report.
type Kind string

const (
	KindSales      Kind = "sales"
	KindProfitLoss Kind = "profit-loss"
	KindExpense    Kind = "expense"
	KindTax        Kind = "tax"
	KindGSTR1      Kind = "gstr1"
	KindGSTR2      Kind = "gstr2"
	KindGSTR3B     Kind = "gstr3b"
)

// Kinds lists every report kind in display order.
var Kinds = []Kind{KindSales, KindProfitLoss, KindExpense, KindTax, KindGSTR1, KindGSTR2, KindGSTR3B}

// ParseKind validates a report kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", model.NewError(model.CodeInvalidRecord, "report.kind", "unknown report kind %q", s)
}

// IsGST reports whether k is a GST return.
func (k Kind) IsGST() bool {
	return k == KindGSTR1 || k == KindGSTR2 || k == KindGSTR3B
}

var filenamePrefix = map[Kind]string{
	KindSales:      "Sales-Report",
	KindProfitLoss: "Profit-Loss",
	KindExpense:    "Expense-Report",
	KindTax:        "Tax-Report",
	KindGSTR1:      "GSTR1",
	KindGSTR2:      "GSTR2",
	KindGSTR3B:     "GSTR3B",
}

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates an export format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", model.NewError(model.CodeInvalidRecord, "report.format", "unknown export format %q", s)
}

// MimeType returns the content type offered with an export.
func (f Format) MimeType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Filename returns the export file name for a report over rng.
//
//	Sales-Report-2024-03-01-to-2024-03-31.csv
//	GSTR1_2024-03-01_to_2024-03-31.json
func Filename(k Kind, rng Range, f Format) string {
	if k.IsGST() {
		return fmt.Sprintf("%s_%s_to_%s.%s", filenamePrefix[k], rng.From, rng.To, f)
	}
	return fmt.Sprintf("%s-%s-to-%s.%s", filenamePrefix[k], rng.From, rng.To, f)
}

// Report is a built report ready for export.
type Report interface {
	Kind() Kind
	records() [][]string
}

// gstnReport is implemented by GST returns, whose JSON form follows the
// GSTN portal layout instead of the report struct.
type gstnReport interface {
	gstn() any
}

const bom = "\ufeff"

// Encode serializes r. CSV output starts with a UTF-8 BOM; JSON output
// never does.
func Encode(r Report, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		var buf bytes.Buffer
		buf.WriteString(bom)
		w := csv.NewWriter(&buf)
		if err := w.WriteAll(r.records()); err != nil {
			return nil, fmt.Errorf("report: encode csv: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		var v any = r
		if g, ok := r.(gstnReport); ok {
			v = g.gstn()
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("report: encode json: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, model.NewError(model.CodeInvalidRecord, "report.encode", "unknown export format %q", f)
}

func (SalesReport) Kind() Kind   { return KindSales }
func (ProfitLoss) Kind() Kind    { return KindProfitLoss }
func (ExpenseReport) Kind() Kind { return KindExpense }
func (TaxReport) Kind() Kind     { return KindTax }
func (GSTR1) Kind() Kind         { return KindGSTR1 }
func (GSTR2) Kind() Kind         { return KindGSTR2 }
func (GSTR3B) Kind() Kind        { return KindGSTR3B }

func header(title string, rng Range) [][]string {
	return [][]string{{title}, {"Period", rng.String()}, nil}
}

func gstHeader(title string, g GSTSettings, rng Range) [][]string {
	return [][]string{{title}, {"GSTIN", g.GSTIN}, {"Period", rng.String()}, nil}
}

func (r SalesReport) records() [][]string {
	out := header("Sales Report", r.Period)
	out = append(out, []string{"Date", "Order ID", "Amount", "Payment Method", "Status"})
	for _, row := range r.Rows {
		out = append(out, []string{row.Date, row.OrderID, row.Amount.String(), row.PaymentMethod, row.Status})
	}
	return append(out,
		nil,
		[]string{"Summary"},
		[]string{"Total Orders", strconv.Itoa(r.Summary.TotalOrders)},
		[]string{"Total Revenue", r.Summary.TotalRevenue.String()},
		[]string{"Average Order Value", r.Summary.AverageOrderValue.String()},
	)
}

func (r ProfitLoss) records() [][]string {
	return append(header("Profit & Loss Statement", r.Period),
		[]string{"Total Revenue", r.TotalRevenue.String()},
		[]string{"Total Expenses", r.TotalExpenses.String()},
		[]string{"Net Profit", r.NetProfit.String()},
		[]string{"Profit Margin (%)", r.ProfitMargin.String()},
	)
}

func (r ExpenseReport) records() [][]string {
	out := header("Expense Report", r.Period)
	out = append(out, []string{"Category Summary"}, []string{"Category", "Amount", "Percentage"})
	for _, c := range r.Categories {
		out = append(out, []string{c.Category, c.Amount.String(), c.Percentage.String()})
	}
	out = append(out, nil, []string{"Expense Details"}, []string{"Date", "Category", "Vendor", "Description", "Amount"})
	for _, row := range r.Rows {
		out = append(out, []string{row.Date, row.Category, row.Vendor, row.Description, row.Amount.String()})
	}
	return append(out, nil, []string{"Total Expenses", r.Total.String()})
}

func (r TaxReport) records() [][]string {
	out := header("Tax Report", r.Period)
	out = append(out, []string{"Tax", "Rate (%)", "Amount"})
	for _, s := range r.Breakdown {
		out = append(out, []string{s.Name, s.Percentage.String(), s.Amount.String()})
	}
	return append(out, nil, []string{"Total Tax Collected", r.TotalTax.String()})
}

func (r GSTR1) records() [][]string {
	b, h := r.B2CS, r.HSN
	return append(gstHeader("GSTR-1 Return", r.Settings, r.Period),
		[]string{"B2CS"},
		[]string{"Type", "Place Of Supply", "Rate", "Taxable Value", "CGST Amount", "SGST Amount", "Cess Amount"},
		[]string{b.Type, b.PlaceOfSupply, b.Rate.String(), b.TaxableValue.String(), b.CGST.String(), b.SGST.String(), b.Cess.String()},
		nil,
		[]string{"HSN Summary"},
		[]string{"HSN/SAC", "Description", "UQC", "Total Quantity", "Total Value", "Taxable Value", "CGST Amount", "SGST Amount", "Cess Amount"},
		[]string{h.Code, h.Description, h.UQC, strconv.FormatInt(h.TotalQuantity, 10), h.TotalValue.String(),
			h.TaxableValue.String(), h.CGST.String(), h.SGST.String(), h.Cess.String()},
	)
}

func (r GSTR2) records() [][]string {
	out := gstHeader("GSTR-2 Return", r.Settings, r.Period)
	out = append(out,
		[]string{"Inward Supplies"},
		[]string{"Supplier GSTIN", "Supplier Name", "Invoice Number", "Invoice Date", "Taxable Value", "CGST Amount", "SGST Amount"},
	)
	for _, p := range r.Purchases {
		out = append(out, []string{p.SupplierGSTIN, p.SupplierName, p.InvoiceNumber, p.InvoiceDate,
			p.TaxableValue.String(), p.CGST.String(), p.SGST.String()})
	}
	return append(out, nil, []string{"Total Input Tax Credit", r.TotalInputTaxCredit.String()})
}

func (r GSTR3B) records() [][]string {
	return append(gstHeader("GSTR-3B Return", r.Settings, r.Period),
		[]string{"Outward Supplies"},
		[]string{"Taxable Value", r.TaxableValue.String()},
		[]string{"CGST", r.Output.CGST.String()},
		[]string{"SGST", r.Output.SGST.String()},
		[]string{"Total Tax", r.Output.Total.String()},
		nil,
		[]string{"Input Tax Credit"},
		[]string{"CGST", r.InputCredit.CGST.String()},
		[]string{"SGST", r.InputCredit.SGST.String()},
		[]string{"Total", r.InputCredit.Total.String()},
		nil,
		[]string{"Net Tax Payable"},
		[]string{"CGST", r.NetPayable.CGST.String()},
		[]string{"SGST", r.NetPayable.SGST.String()},
		[]string{"Total", r.NetPayable.Total.String()},
	)
}
