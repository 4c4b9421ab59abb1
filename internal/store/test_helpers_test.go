package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/model"
)

const testRestaurant = "rest-1"

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// baseTime is the fixed instant test records are stamped relative to.
var baseTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

// createTestNotification creates an unread info notification created
// offset after baseTime.
func createTestNotification(id string, offset time.Duration) model.Notification {
	return model.Notification{
		ID:           id,
		RestaurantID: testRestaurant,
		Title:        "Title " + id,
		Message:      "Message " + id,
		Type:         model.NotificationInfo,
		CreatedAt:    baseTime.Add(offset),
	}
}

// createTestOrder creates a served order with a single item.
func createTestOrder(id string, total string, createdAt time.Time) model.Order {
	return model.Order{
		ID:            id,
		OrderNumber:   "ORD-" + id,
		RestaurantID:  testRestaurant,
		TotalAmount:   dec(total),
		TaxAmount:     decimal.Zero,
		Status:        model.OrderServed,
		PaymentStatus: model.PaymentPaid,
		PaymentMethod: "CASH",
		CreatedAt:     createdAt,
		Items: []model.OrderItem{
			{ID: id + "-a", Name: "Thali", Quantity: 1, TotalPrice: dec(total)},
		},
	}
}

// createTestCustomer creates a customer with no balance.
func createTestCustomer(id, name string) model.Customer {
	return model.Customer{
		ID:           id,
		RestaurantID: testRestaurant,
		Name:         name,
		Mobile:       "9000000000",
		CreatedAt:    baseTime,
	}
}
