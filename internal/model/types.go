package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NotificationType classifies a notification for display.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// ValidNotificationTypes defines allowed notification types.
var ValidNotificationTypes = map[NotificationType]bool{
	NotificationInfo:    true,
	NotificationWarning: true,
	NotificationSuccess: true,
	NotificationError:   true,
}

// Notification is a server-originated message kept in the local store.
type Notification struct {
	ID           string           `db:"id" json:"id"`
	RestaurantID string           `db:"restaurant_id" json:"restaurant_id"`
	Title        string           `db:"title" json:"title"`
	Message      string           `db:"message" json:"message"`
	Type         NotificationType `db:"type" json:"type"`
	IsRead       bool             `db:"is_read" json:"is_read"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// Validate checks structural rules for a notification.
func (n Notification) Validate() error {
	if n.ID == "" {
		return NewError(CodeInvalidRecord, "notification", "id is required")
	}
	if !ValidNotificationTypes[n.Type] {
		return NewError(CodeInvalidRecord, "notification", "unknown type %q", n.Type)
	}
	return nil
}

// RemoteNotification is a notification as reported by the remote feed.
// CreatedAt is optional on the wire; the sync engine stamps absent values.
type RemoteNotification struct {
	ID        string           `json:"id" yaml:"id"`
	Title     string           `json:"title" yaml:"title"`
	Message   string           `json:"message" yaml:"message"`
	Type      NotificationType `json:"type" yaml:"type"`
	IsRead    bool             `json:"isRead" yaml:"is_read"`
	CreatedAt *time.Time       `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
}

// Order statuses.
const (
	OrderPending   = "PENDING"
	OrderPreparing = "PREPARING"
	OrderReady     = "READY"
	OrderServed    = "SERVED"
	OrderCancelled = "CANCELLED"
)

// Payment statuses.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentPartial = "PARTIAL"
	PaymentCredit  = "CREDIT"
)

// Order is a customer order. Orders are written by the (external) ordering
// flows and only read by the core.
type Order struct {
	ID            string          `db:"id" json:"id"`
	OrderNumber   string          `db:"order_number" json:"order_number"`
	RestaurantID  string          `db:"restaurant_id" json:"restaurant_id"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	TaxAmount     decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	Status        string          `db:"status" json:"status"`
	PaymentStatus string          `db:"payment_status" json:"payment_status"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	CustomerID    *string         `db:"customer_id" json:"customer_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`

	// Items is populated by store.GetOrder and written by store.UpsertOrder.
	Items []OrderItem `db:"-" json:"items,omitempty"`
}

// Validate checks structural and amount rules for an order and its items.
func (o Order) Validate() error {
	if o.ID == "" {
		return NewError(CodeInvalidRecord, "order", "id is required")
	}
	if o.TotalAmount.IsNegative() {
		return NewError(CodeInvalidAmount, "order", "total amount %s is negative", o.TotalAmount)
	}
	if o.TaxAmount.IsNegative() {
		return NewError(CodeInvalidAmount, "order", "tax amount %s is negative", o.TaxAmount)
	}
	for i, item := range o.Items {
		if item.OrderID != "" && item.OrderID != o.ID {
			return NewError(CodeInvalidRecord, "order", "item %d belongs to order %q", i, item.OrderID)
		}
		if item.Quantity < 0 {
			return NewError(CodeInvalidRecord, "order", "item %d has negative quantity", i)
		}
	}
	return nil
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID           string          `db:"id" json:"id"`
	OrderID      string          `db:"order_id" json:"order_id"`
	RestaurantID string          `db:"restaurant_id" json:"-"`
	Name         string          `db:"name" json:"name"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"total_price"`
}

// Expense is an outgoing payment recorded by the restaurant.
type Expense struct {
	ID           string          `db:"id" json:"id"`
	RestaurantID string          `db:"restaurant_id" json:"restaurant_id"`
	Category     string          `db:"category" json:"category"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Date         string          `db:"date" json:"date"` // YYYY-MM-DD
	VendorName   *string         `db:"vendor_name" json:"vendor_name,omitempty"`
	Description  *string         `db:"description" json:"description,omitempty"`
}

// Validate checks that the expense amount is positive.
func (e Expense) Validate() error {
	if e.ID == "" {
		return NewError(CodeInvalidRecord, "expense", "id is required")
	}
	if !e.Amount.IsPositive() {
		return NewError(CodeInvalidAmount, "expense", "amount %s must be positive", e.Amount)
	}
	if e.Date == "" {
		return NewError(CodeInvalidRecord, "expense", "date is required")
	}
	return nil
}

// Tax is a configured tax row, e.g. CGST 9%.
type Tax struct {
	ID           string          `db:"id" json:"id"`
	RestaurantID string          `db:"restaurant_id" json:"restaurant_id"`
	Name         string          `db:"name" json:"name"`
	Percentage   decimal.Decimal `db:"percentage" json:"percentage"`
}

// Validate checks that the percentage is non-negative.
func (t Tax) Validate() error {
	if t.ID == "" {
		return NewError(CodeInvalidRecord, "tax", "id is required")
	}
	if t.Percentage.IsNegative() {
		return NewError(CodeInvalidAmount, "tax", "percentage %s is negative", t.Percentage)
	}
	return nil
}

// Customer is a credit customer. CreditBalance is derived from the ledger.
type Customer struct {
	ID            string          `db:"id" json:"id"`
	RestaurantID  string          `db:"restaurant_id" json:"restaurant_id"`
	Name          string          `db:"name" json:"name"`
	Mobile        string          `db:"mobile" json:"mobile"`
	CreditBalance decimal.Decimal `db:"credit_balance" json:"credit_balance"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Validate checks structural rules for a customer.
func (c Customer) Validate() error {
	if c.ID == "" {
		return NewError(CodeInvalidRecord, "customer", "id is required")
	}
	if c.Name == "" {
		return NewError(CodeInvalidRecord, "customer", "name is required")
	}
	return nil
}

// TransactionType is the business reason for a ledger row.
type TransactionType string

const (
	TxCredit  TransactionType = "CREDIT"
	TxPayment TransactionType = "PAYMENT"
)

// CreditTransaction is an append-only row of a customer's credit ledger.
type CreditTransaction struct {
	ID           string          `db:"id" json:"id"`
	RestaurantID string          `db:"restaurant_id" json:"restaurant_id"`
	CustomerID   string          `db:"customer_id" json:"customer_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Type         TransactionType `db:"type" json:"type"`
	Description  *string         `db:"description" json:"description,omitempty"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	Seq          int64           `db:"seq" json:"seq"`
}

// Validate checks the sign rule for the transaction type against the balance
// immediately before the transaction.
func (t CreditTransaction) Validate(prior decimal.Decimal) error {
	switch t.Type {
	case TxCredit:
		if !t.Amount.IsPositive() {
			return NewError(CodeInvalidAmount, "credit_transaction", "credit amount %s must be positive", t.Amount)
		}
	case TxPayment:
		if !t.Amount.IsNegative() {
			return NewError(CodeInvalidAmount, "credit_transaction", "payment amount %s must be negative", t.Amount)
		}
		if t.Amount.Abs().GreaterThan(prior) {
			return NewError(CodeExceedsBalance, "credit_transaction", "payment %s exceeds balance %s", t.Amount.Abs(), prior)
		}
	default:
		return NewError(CodeInvalidRecord, "credit_transaction", "unknown type %q", t.Type)
	}
	if !t.BalanceAfter.Equal(prior.Add(t.Amount)) {
		return NewError(CodeInvalidRecord, "credit_transaction",
			"balance after %s does not equal %s + %s", t.BalanceAfter, prior, t.Amount)
	}
	return nil
}

// String renders the transaction for logs.
func (t CreditTransaction) String() string {
	return fmt.Sprintf("%s %s %s -> %s", t.ID, t.Type, t.Amount, t.BalanceAfter)
}
