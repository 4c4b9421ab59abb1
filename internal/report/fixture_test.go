package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/model"
)

const testRestaurant = "rest-1"

var march = Range{From: "2024-03-01", To: "2024-03-31"}

var testSettings = GSTSettings{GSTIN: "29AAACR1234A1Z5", PlaceOfSupply: "29-Karnataka"}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func at(day, hour, min int) time.Time {
	return time.Date(2024, time.March, day, hour, min, 0, 0, time.UTC)
}

func fixtureOrders() []model.Order {
	return []model.Order{
		{
			ID: "o1", OrderNumber: "ORD-001", RestaurantID: testRestaurant,
			TotalAmount: dec("218.00"), TaxAmount: dec("18.00"),
			Status: model.OrderServed, PaymentStatus: model.PaymentPaid, PaymentMethod: "CASH",
			CreatedAt: at(5, 10, 0),
			Items: []model.OrderItem{
				{ID: "o1-1", OrderID: "o1", Name: "Paneer Tikka", Quantity: 2, TotalPrice: dec("120.00")},
				{ID: "o1-2", OrderID: "o1", Name: "Lassi", Quantity: 2, TotalPrice: dec("80.00")},
			},
		},
		{
			ID: "o2", OrderNumber: "ORD-002", RestaurantID: testRestaurant,
			TotalAmount: dec("436.00"), TaxAmount: dec("36.00"),
			Status: model.OrderServed, PaymentStatus: model.PaymentPaid, PaymentMethod: "UPI",
			CreatedAt: at(6, 19, 30),
			Items: []model.OrderItem{
				{ID: "o2-1", OrderID: "o2", Name: "Thali", Quantity: 4, TotalPrice: dec("400.00")},
			},
		},
		{
			ID: "o3", RestaurantID: testRestaurant,
			TotalAmount: dec("59.00"), TaxAmount: dec("9.00"),
			Status: model.OrderCancelled, PaymentStatus: model.PaymentPending, PaymentMethod: "CASH",
			CreatedAt: at(7, 13, 15),
			Items: []model.OrderItem{
				{ID: "o3-1", OrderID: "o3", Name: "Tea", Quantity: 1, TotalPrice: dec("50.00")},
			},
		},
	}
}

func fixtureExpenses() []model.Expense {
	return []model.Expense{
		{ID: "e1", RestaurantID: testRestaurant, Category: "Groceries", Amount: dec("300.00"), Date: "2024-03-02",
			VendorName: strPtr("Fresh Mart"), Description: strPtr("Vegetables, spices")},
		{ID: "e2", RestaurantID: testRestaurant, Category: "Utilities", Amount: dec("150.00"), Date: "2024-03-03",
			Description: strPtr("Electricity")},
		{ID: "e3", RestaurantID: testRestaurant, Category: "Groceries", Amount: dec("50.00"), Date: "2024-03-04",
			VendorName: strPtr("Dairy Co")},
	}
}

func fixtureTaxes() []model.Tax {
	return []model.Tax{
		{ID: "t1", RestaurantID: testRestaurant, Name: "CGST", Percentage: dec("9")},
		{ID: "t2", RestaurantID: testRestaurant, Name: "SGST", Percentage: dec("9")},
	}
}

// fixtureSnapshot is a month with two served orders, one cancelled order,
// three expenses and CGST/SGST at 9% each.
func fixtureSnapshot() Snapshot {
	snap := Snapshot{
		Range:    march,
		Location: time.UTC,
		Items:    make(map[string][]model.OrderItem),
		Expenses: fixtureExpenses(),
		Taxes:    fixtureTaxes(),
	}
	for _, o := range fixtureOrders() {
		snap.Items[o.ID] = o.Items
		o.Items = nil
		snap.Orders = append(snap.Orders, o)
	}
	return snap
}
