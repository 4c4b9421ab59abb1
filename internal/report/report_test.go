package report

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/offpos/internal/model"
)

func TestBuildSales(t *testing.T) {
	r := BuildSales(fixtureSnapshot())

	require.Len(t, r.Rows, 3)
	assert.Equal(t, "ORD-001", r.Rows[0].OrderID)
	assert.Equal(t, "2024-03-06", r.Rows[1].Date)
	assert.Equal(t, "o3", r.Rows[2].OrderID, "falls back to id without an order number")

	assert.Equal(t, 3, r.Summary.TotalOrders)
	assert.Equal(t, "713.00", r.Summary.TotalRevenue.String())
	assert.Equal(t, "237.67", r.Summary.AverageOrderValue.String())
}

func TestBuildSales_SummaryIdentity(t *testing.T) {
	r := BuildSales(fixtureSnapshot())

	sum := decimal.Zero
	for _, row := range r.Rows {
		sum = sum.Add(row.Amount.Decimal)
	}
	assert.True(t, sum.Equal(r.Summary.TotalRevenue.Decimal))
	assert.Equal(t, len(r.Rows), r.Summary.TotalOrders)
}

func TestBuildSales_Empty(t *testing.T) {
	r := BuildSales(Snapshot{Range: march})

	assert.Empty(t, r.Rows)
	assert.Equal(t, 0, r.Summary.TotalOrders)
	assert.Equal(t, "0.00", r.Summary.AverageOrderValue.String())
}

func TestBuildProfitLoss(t *testing.T) {
	r := BuildProfitLoss(fixtureSnapshot())

	assert.Equal(t, "713.00", r.TotalRevenue.String())
	assert.Equal(t, "500.00", r.TotalExpenses.String())
	assert.Equal(t, "213.00", r.NetProfit.String())
	assert.Equal(t, "29.87", r.ProfitMargin.String())
	assert.True(t, r.NetProfit.Equal(r.TotalRevenue.Sub(r.TotalExpenses.Decimal)))
}

func TestBuildProfitLoss_NoRevenue(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Orders = nil

	r := BuildProfitLoss(snap)

	assert.Equal(t, "-500.00", r.NetProfit.String())
	assert.Equal(t, "0.00", r.ProfitMargin.String())
}

func TestBuildExpenses(t *testing.T) {
	r := BuildExpenses(fixtureSnapshot())

	require.Len(t, r.Categories, 2)
	assert.Equal(t, "Groceries", r.Categories[0].Category)
	assert.Equal(t, "350.00", r.Categories[0].Amount.String())
	assert.Equal(t, "70.00", r.Categories[0].Percentage.String())
	assert.Equal(t, "Utilities", r.Categories[1].Category)
	assert.Equal(t, "30.00", r.Categories[1].Percentage.String())

	require.Len(t, r.Rows, 3)
	assert.Equal(t, "Fresh Mart", r.Rows[0].Vendor)
	assert.Equal(t, "", r.Rows[1].Vendor)
	assert.Equal(t, "", r.Rows[2].Description)
	assert.Equal(t, "500.00", r.Total.String())
}

func TestBuildExpenses_SubtotalsSumToTotal(t *testing.T) {
	r := BuildExpenses(fixtureSnapshot())

	sum := decimal.Zero
	for _, c := range r.Categories {
		sum = sum.Add(c.Amount.Decimal)
	}
	assert.True(t, sum.Equal(r.Total.Decimal))
}

func TestBuildExpenses_Empty(t *testing.T) {
	r := BuildExpenses(Snapshot{Range: march})

	assert.Empty(t, r.Categories)
	assert.Empty(t, r.Rows)
	assert.Equal(t, "0.00", r.Total.String())
}

func TestBuildTaxBreakdown(t *testing.T) {
	r := BuildTaxBreakdown(fixtureSnapshot())

	require.Len(t, r.Breakdown, 2)
	assert.Equal(t, "CGST", r.Breakdown[0].Name)
	assert.Equal(t, "31.50", r.Breakdown[0].Amount.String())
	assert.Equal(t, "31.50", r.Breakdown[1].Amount.String())
	assert.Equal(t, "63.00", r.TotalTax.String())
}

func TestBuildTaxBreakdown_NoTaxes(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Taxes = nil

	r := BuildTaxBreakdown(snap)

	assert.Empty(t, r.Breakdown)
	assert.Equal(t, "63.00", r.TotalTax.String())
}

func TestBuildTaxBreakdown_ZeroPercentages(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Taxes = []model.Tax{{ID: "t1", Name: "Exempt", Percentage: decimal.Zero}}

	assert.Empty(t, BuildTaxBreakdown(snap).Breakdown)
}

func TestDistribute_RemainderOnLastRow(t *testing.T) {
	orders := []model.Order{{ID: "o1", TaxAmount: dec("10.00")}}
	taxes := []model.Tax{
		{ID: "a", Percentage: dec("1")},
		{ID: "b", Percentage: dec("1")},
		{ID: "c", Percentage: dec("1")},
	}

	got := Distribute(orders, taxes)

	require.Len(t, got, 3)
	assert.Equal(t, "3.33", got[0].StringFixed(2))
	assert.Equal(t, "3.33", got[1].StringFixed(2))
	assert.Equal(t, "3.34", got[2].StringFixed(2))
}

// The breakdown always sums to the collected tax, whatever the rates.
func TestDistribute_SumsToCollected(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		var taxes []model.Tax
		nTaxes, nOrders := 1+rng.Intn(4), rng.Intn(10)
		for j := 0; j < nTaxes; j++ {
			pct := decimal.New(int64(1+rng.Intn(2800)), -2)
			taxes = append(taxes, model.Tax{ID: "t", Percentage: pct})
		}
		var orders []model.Order
		collected := decimal.Zero
		for j := 0; j < nOrders; j++ {
			tax := decimal.New(int64(rng.Intn(100000)), -2)
			orders = append(orders, model.Order{ID: "o", TaxAmount: tax})
			collected = collected.Add(tax)
		}

		got := Distribute(orders, taxes)
		require.Len(t, got, len(taxes))
		sum := decimal.Zero
		for _, a := range got {
			sum = sum.Add(a)
		}
		require.True(t, sum.Equal(collected), "iteration %d: %s != %s", i, sum, collected)
	}
}

func TestBuildGSTR1(t *testing.T) {
	r := BuildGSTR1(fixtureSnapshot(), testSettings)

	assert.Equal(t, "600.00", r.B2CS.TaxableValue.String(), "cancelled orders are excluded")
	assert.Equal(t, "27.00", r.B2CS.CGST.String())
	assert.Equal(t, "27.00", r.B2CS.SGST.String())
	assert.Equal(t, "18.00", r.B2CS.Rate.String())
	assert.Equal(t, "OE", r.B2CS.Type)

	assert.Equal(t, DefaultSACCode, r.HSN.Code)
	assert.Equal(t, int64(8), r.HSN.TotalQuantity)
	assert.Equal(t, "654.00", r.HSN.TotalValue.String())
}

func TestBuildGSTR1_OddTaxSplit(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Orders[0].TaxAmount = dec("18.01")

	r := BuildGSTR1(snap, testSettings)

	assert.Equal(t, "27.01", r.B2CS.CGST.String())
	assert.Equal(t, "27.00", r.B2CS.SGST.String())
	assert.True(t, r.B2CS.CGST.Add(r.B2CS.SGST.Decimal).Equal(dec("54.01")))
}

func TestRatesFrom(t *testing.T) {
	tests := []struct {
		name  string
		taxes []model.Tax
		cgst  string
		sgst  string
	}{
		{"defaults", nil, "9", "9"},
		{"configured", []model.Tax{{Name: "CGST 2.5%", Percentage: dec("2.5")}, {Name: "sgst", Percentage: dec("2.5")}}, "2.5", "2.5"},
		{"only cgst", []model.Tax{{Name: "CGST", Percentage: dec("6")}}, "6", "9"},
		{"unrelated", []model.Tax{{Name: "Service Charge", Percentage: dec("10")}}, "9", "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RatesFrom(tt.taxes)
			assert.True(t, r.CGST.Equal(dec(tt.cgst)), "cgst %s", r.CGST)
			assert.True(t, r.SGST.Equal(dec(tt.sgst)), "sgst %s", r.SGST)
		})
	}
}

func TestBuildGSTR2_Placeholder(t *testing.T) {
	r := BuildGSTR2(Snapshot{Range: march}, testSettings)

	require.Len(t, r.Purchases, 2)
	assert.Equal(t, "2024-03-01", r.Purchases[0].InvoiceDate)
	assert.Equal(t, "2700.00", r.TotalInputTaxCredit.String())
}

func TestBuildGSTR3B(t *testing.T) {
	r := BuildGSTR3B(fixtureSnapshot(), testSettings)

	assert.Equal(t, "600.00", r.TaxableValue.String())
	assert.Equal(t, "54.00", r.Output.CGST.String())
	assert.Equal(t, "108.00", r.Output.Total.String())
	assert.Equal(t, "21.60", r.InputCredit.CGST.String())
	assert.Equal(t, "43.20", r.InputCredit.Total.String())
	assert.Equal(t, "32.40", r.NetPayable.SGST.String())
	assert.Equal(t, "64.80", r.NetPayable.Total.String())
}

func TestRange(t *testing.T) {
	assert.True(t, march.Contains("2024-03-01"))
	assert.True(t, march.Contains("2024-03-31"))
	assert.False(t, march.Contains("2024-04-01"))
	assert.False(t, march.Contains("2024-02-29"))

	err := Range{From: "2024-03-01"}.Validate()
	assert.Equal(t, model.CodeInvalidRecord, model.CodeOf(err))
}

func TestLocalDate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	late := time.Date(2024, time.March, 31, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-31", localDate(late, time.UTC))
	assert.Equal(t, "2024-04-01", localDate(late, ist))
}
