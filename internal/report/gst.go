package report

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/model"
)

// DefaultSACCode is the services accounting code for restaurant services.
const DefaultSACCode = "996331"

var (
	defaultGSTRate = decimal.NewFromInt(9)
	itcShare       = decimal.RequireFromString("0.40")
)

// GSTSettings identify the registered business on GST returns.
type GSTSettings struct {
	GSTIN string `yaml:"gstin" json:"gstin"`

	// PlaceOfSupply is "<state code>-<state name>", e.g. "29-Karnataka".
	PlaceOfSupply string `yaml:"place_of_supply" json:"place_of_supply"`
	SACCode       string `yaml:"sac_code" json:"sac_code"`
}

func (g GSTSettings) withDefaults() GSTSettings {
	if g.SACCode == "" {
		g.SACCode = DefaultSACCode
	}
	return g
}

// stateCode returns the numeric prefix of the place of supply.
func (g GSTSettings) stateCode() string {
	code, _, _ := strings.Cut(g.PlaceOfSupply, "-")
	return strings.TrimSpace(code)
}

// Rates are the CGST and SGST percentages in effect.
type Rates struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
}

// Combined returns CGST + SGST.
func (r Rates) Combined() decimal.Decimal {
	return r.CGST.Add(r.SGST)
}

// RatesFrom picks the first tax rows whose names contain "CGST" and "SGST".
// Either rate defaults to 9 when no row matches.
func RatesFrom(taxes []model.Tax) Rates {
	r := Rates{CGST: defaultGSTRate, SGST: defaultGSTRate}
	var haveC, haveS bool
	for _, t := range taxes {
		name := strings.ToUpper(t.Name)
		switch {
		case !haveC && strings.Contains(name, "CGST"):
			r.CGST, haveC = t.Percentage, true
		case !haveS && strings.Contains(name, "SGST"):
			r.SGST, haveS = t.Percentage, true
		}
	}
	return r
}

// servedTotals sums item values, item quantities and collected tax over
// SERVED orders.
func servedTotals(snap Snapshot) (taxable decimal.Decimal, qty int64, collected decimal.Decimal) {
	taxable, collected = decimal.Zero, decimal.Zero
	for _, o := range snap.Orders {
		if o.Status != model.OrderServed {
			continue
		}
		collected = collected.Add(o.TaxAmount)
		for _, item := range snap.Items[o.ID] {
			taxable = taxable.Add(item.TotalPrice)
			qty += item.Quantity
		}
	}
	return taxable, qty, collected
}

// splitEven halves total to cents; the second half takes the remainder.
func splitEven(total decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	first := total.Div(decimal.NewFromInt(2)).Round(2)
	return first, total.Sub(first)
}

// B2CSRow is the business-to-consumer (small) supplies summary.
type B2CSRow struct {
	Type          string `json:"type"`
	PlaceOfSupply string `json:"place_of_supply"`
	Rate          Money  `json:"rate"`
	TaxableValue  Money  `json:"taxable_value"`
	CGST          Money  `json:"cgst"`
	SGST          Money  `json:"sgst"`
	Cess          Money  `json:"cess"`
}

// HSNRow is the HSN/SAC-wise summary of outward supplies.
type HSNRow struct {
	Code          string `json:"code"`
	Description   string `json:"description"`
	UQC           string `json:"uqc"`
	TotalQuantity int64  `json:"total_quantity"`
	TotalValue    Money  `json:"total_value"`
	TaxableValue  Money  `json:"taxable_value"`
	CGST          Money  `json:"cgst"`
	SGST          Money  `json:"sgst"`
	Cess          Money  `json:"cess"`
}

// GSTR1 is the outward supplies return.
type GSTR1 struct {
	Period   Range       `json:"period"`
	Settings GSTSettings `json:"settings"`
	B2CS     B2CSRow     `json:"b2cs"`
	HSN      HSNRow      `json:"hsn"`
}

// BuildGSTR1 builds the GSTR-1 return over SERVED orders. Collected tax is
// split evenly between the CGST and SGST buckets.
func BuildGSTR1(snap Snapshot, settings GSTSettings) GSTR1 {
	settings = settings.withDefaults()
	rates := RatesFrom(snap.Taxes)
	taxable, qty, collected := servedTotals(snap)
	cgst, sgst := splitEven(collected)
	zero := M(decimal.Zero)

	return GSTR1{
		Period:   snap.Range,
		Settings: settings,
		B2CS: B2CSRow{
			Type:          "OE",
			PlaceOfSupply: settings.PlaceOfSupply,
			Rate:          M(rates.Combined()),
			TaxableValue:  M(taxable),
			CGST:          M(cgst),
			SGST:          M(sgst),
			Cess:          zero,
		},
		HSN: HSNRow{
			Code:          settings.SACCode,
			Description:   "Restaurant Services",
			UQC:           "NOS",
			TotalQuantity: qty,
			TotalValue:    M(taxable.Add(collected)),
			TaxableValue:  M(taxable),
			CGST:          M(cgst),
			SGST:          M(sgst),
			Cess:          zero,
		},
	}
}

// PurchaseRow is one inward supply invoice.
type PurchaseRow struct {
	SupplierGSTIN string `json:"supplier_gstin"`
	SupplierName  string `json:"supplier_name"`
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	TaxableValue  Money  `json:"taxable_value"`
	CGST          Money  `json:"cgst"`
	SGST          Money  `json:"sgst"`
}

// GSTR2 is the inward supplies return. Purchases are not recorded locally,
// so the rows are a fixed illustration dated at the start of the period.
type GSTR2 struct {
	Period              Range         `json:"period"`
	Settings            GSTSettings   `json:"settings"`
	Purchases           []PurchaseRow `json:"purchases"`
	TotalInputTaxCredit Money         `json:"total_input_tax_credit"`
}

// BuildGSTR2 builds the illustrative GSTR-2 return.
func BuildGSTR2(snap Snapshot, settings GSTSettings) GSTR2 {
	d := decimal.NewFromInt
	rows := []PurchaseRow{
		{"29ABCDE1234F1Z5", "ABC Suppliers", "INV-001", snap.Range.From, M(d(10000)), M(d(900)), M(d(900))},
		{"27FGHIJ5678K1Z3", "XYZ Traders", "INV-002", snap.Range.From, M(d(5000)), M(d(450)), M(d(450))},
	}
	itc := decimal.Zero
	for _, r := range rows {
		itc = itc.Add(r.CGST.Decimal).Add(r.SGST.Decimal)
	}
	return GSTR2{
		Period:              snap.Range,
		Settings:            settings.withDefaults(),
		Purchases:           rows,
		TotalInputTaxCredit: M(itc),
	}
}

// TaxTriple is a CGST/SGST pair with its total.
type TaxTriple struct {
	CGST  Money `json:"cgst"`
	SGST  Money `json:"sgst"`
	Total Money `json:"total"`
}

func triple(cgst, sgst decimal.Decimal) TaxTriple {
	return TaxTriple{CGST: M(cgst), SGST: M(sgst), Total: M(cgst.Add(sgst))}
}

// GSTR3B is the monthly summary return.
type GSTR3B struct {
	Period       Range       `json:"period"`
	Settings     GSTSettings `json:"settings"`
	TaxableValue Money       `json:"taxable_value"`
	Output       TaxTriple   `json:"output"`
	InputCredit  TaxTriple   `json:"input_credit"`
	NetPayable   TaxTriple   `json:"net_payable"`
}

// BuildGSTR3B builds the GSTR-3B summary. Output tax is computed from the
// configured rates on the taxable value of SERVED orders; input credit is
// estimated at 40% of each output component.
func BuildGSTR3B(snap Snapshot, settings GSTSettings) GSTR3B {
	rates := RatesFrom(snap.Taxes)
	taxable, _, _ := servedTotals(snap)

	cgst := taxable.Mul(rates.CGST).Div(hundred).Round(2)
	sgst := taxable.Mul(rates.SGST).Div(hundred).Round(2)
	itcC := cgst.Mul(itcShare).Round(2)
	itcS := sgst.Mul(itcShare).Round(2)

	return GSTR3B{
		Period:       snap.Range,
		Settings:     settings.withDefaults(),
		TaxableValue: M(taxable),
		Output:       triple(cgst, sgst),
		InputCredit:  triple(itcC, itcS),
		NetPayable:   triple(cgst.Sub(itcC), sgst.Sub(itcS)),
	}
}
