package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/offpos/internal/keylock"
	"github.com/roach88/offpos/internal/logging"
	"github.com/roach88/offpos/internal/metrics"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/store"
)

// DeletePolicy decides whether a customer with a balance can be deleted.
type DeletePolicy string

const (
	// DeleteWarn deletes and reports the outstanding balance.
	DeleteWarn DeletePolicy = "warn"

	// DeleteBlock refuses with OUTSTANDING_BALANCE.
	DeleteBlock DeletePolicy = "block"
)

// ParseDeletePolicy parses a policy name. Empty means DeleteWarn.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch DeletePolicy(s) {
	case "", DeleteWarn:
		return DeleteWarn, nil
	case DeleteBlock:
		return DeleteBlock, nil
	}
	return "", fmt.Errorf("unknown delete policy %q", s)
}

// Ledger applies credit and payment transactions.
//
// Thread-safety: all methods are safe for concurrent use; operations on the
// same customer are serialized.
type Ledger struct {
	store  *store.Store
	locks  *keylock.Map
	ids    IDGenerator
	now    func() time.Time
	policy DeletePolicy
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Ledger) {
		l.ids = g
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithDeletePolicy sets the delete policy. Default: DeleteWarn.
func WithDeletePolicy(p DeletePolicy) Option {
	return func(l *Ledger) {
		l.policy = p
	}
}

// New creates a Ledger over s.
func New(s *store.Store, logger *zap.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		store:  s,
		locks:  keylock.New(),
		ids:    UUIDv7Generator{},
		now:    time.Now,
		policy: DeleteWarn,
		logger: logger.Named("ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddCredit records goods taken on credit. amount must be positive.
func (l *Ledger) AddCredit(ctx context.Context, restaurantID, customerID string, amount decimal.Decimal, description string) (model.CreditTransaction, error) {
	tx, err := l.apply(ctx, "ledger.add_credit", restaurantID, customerID, model.TxCredit, amount, description)
	metrics.LedgerOperations.WithLabelValues("add_credit", outcome(err)).Inc()
	return tx, err
}

// RecordPayment records a repayment. amount must be positive and no larger
// than the current balance.
func (l *Ledger) RecordPayment(ctx context.Context, restaurantID, customerID string, amount decimal.Decimal, description string) (model.CreditTransaction, error) {
	tx, err := l.apply(ctx, "ledger.record_payment", restaurantID, customerID, model.TxPayment, amount, description)
	metrics.LedgerOperations.WithLabelValues("record_payment", outcome(err)).Inc()
	return tx, err
}

// apply runs read-balance, compute, insert, write-balance as one commit unit.
func (l *Ledger) apply(ctx context.Context, op, restaurantID, customerID string, typ model.TransactionType, amount decimal.Decimal, description string) (model.CreditTransaction, error) {
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return model.CreditTransaction{}, err
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return model.CreditTransaction{}, model.NewError(model.CodeInvalidAmount, op,
			"amount %s must be greater than zero", amount)
	}

	unlock := l.locks.Lock(customerKey(restaurantID, customerID))
	defer unlock()

	var result model.CreditTransaction
	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		c, err := tx.GetCustomer(ctx, restaurantID, customerID)
		if err != nil {
			return err
		}
		prior := c.CreditBalance

		signed := amount
		if typ == model.TxPayment {
			if amount.GreaterThan(prior) {
				return model.NewError(model.CodeExceedsBalance, op,
					"payment %s exceeds balance %s", amount.StringFixed(2), prior.StringFixed(2))
			}
			signed = amount.Neg()
		}

		// created_at never runs backwards within a ledger, even when the
		// device clock does.
		createdAt := l.now().UTC()
		last, ok, err := tx.LastCreditTransaction(ctx, restaurantID, customerID)
		if err != nil {
			return err
		}
		if ok && createdAt.Before(last.CreatedAt) {
			createdAt = last.CreatedAt.UTC()
		}

		ct := model.CreditTransaction{
			ID:           l.ids.Generate(),
			RestaurantID: restaurantID,
			CustomerID:   customerID,
			Amount:       signed,
			Type:         typ,
			Description:  optional(description),
			BalanceAfter: prior.Add(signed),
			CreatedAt:    createdAt,
		}
		seq, err := tx.InsertCreditTransaction(ctx, ct, prior)
		if err != nil {
			return err
		}
		ct.Seq = seq

		if err := tx.SetCustomerBalance(ctx, restaurantID, customerID, ct.BalanceAfter); err != nil {
			return err
		}
		result = ct
		return nil
	})
	if err != nil {
		l.logger.Debug("ledger transaction rejected",
			logging.Tenant(restaurantID),
			zap.String("customer_id", customerID),
			zap.String("type", string(typ)),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
		return model.CreditTransaction{}, err
	}

	l.logger.Info("ledger transaction",
		logging.Tenant(restaurantID),
		zap.String("customer_id", customerID),
		zap.Stringer("tx", result),
	)
	return result, nil
}

// History returns the customer's transactions in append order.
func (l *Ledger) History(ctx context.Context, restaurantID, customerID string) ([]model.CreditTransaction, error) {
	if _, err := l.store.GetCustomer(ctx, restaurantID, customerID); err != nil {
		return nil, err
	}
	return l.store.ListCreditTransactions(ctx, restaurantID, customerID)
}

// DeleteResult reports what a customer delete discarded.
type DeleteResult struct {
	CustomerID         string          `json:"customer_id"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`

	// Warning is true when a non-zero balance was discarded.
	Warning bool `json:"warning"`
}

// DeleteCustomer removes the customer and their ledger.
//
// Under DeleteWarn a non-zero balance is discarded and reported; under
// DeleteBlock the delete fails with OUTSTANDING_BALANCE.
func (l *Ledger) DeleteCustomer(ctx context.Context, restaurantID, customerID string) (DeleteResult, error) {
	const op = "ledger.delete_customer"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return DeleteResult{}, err
	}

	unlock := l.locks.Lock(customerKey(restaurantID, customerID))
	defer unlock()

	c, err := l.store.GetCustomer(ctx, restaurantID, customerID)
	if err != nil {
		return DeleteResult{}, err
	}
	result := DeleteResult{
		CustomerID:         customerID,
		OutstandingBalance: c.CreditBalance,
		Warning:            !c.CreditBalance.IsZero(),
	}
	if result.Warning && l.policy == DeleteBlock {
		metrics.LedgerOperations.WithLabelValues("delete_customer", "blocked").Inc()
		return result, model.NewError(model.CodeOutstandingBalance, op,
			"customer %s has outstanding balance %s", customerID, c.CreditBalance.StringFixed(2))
	}

	if err := l.store.DeleteCustomer(ctx, restaurantID, customerID); err != nil {
		metrics.LedgerOperations.WithLabelValues("delete_customer", "error").Inc()
		return DeleteResult{}, err
	}
	metrics.LedgerOperations.WithLabelValues("delete_customer", "ok").Inc()

	if result.Warning {
		l.logger.Warn("deleted customer with outstanding balance",
			logging.Tenant(restaurantID),
			zap.String("customer_id", customerID),
			zap.String("balance", c.CreditBalance.StringFixed(2)),
		)
	}
	return result, nil
}

// VerifyReport is the result of Verify.
type VerifyReport struct {
	CustomerID   string          `json:"customer_id"`
	Balance      decimal.Decimal `json:"balance"`
	LedgerSum    decimal.Decimal `json:"ledger_sum"`
	Transactions int             `json:"transactions"`
	Violation    *Violation      `json:"violation,omitempty"`
}

// OK reports whether every invariant holds.
func (r VerifyReport) OK() bool {
	return r.Violation == nil
}

// Verify checks the customer's ledger invariants.
func (l *Ledger) Verify(ctx context.Context, restaurantID, customerID string) (VerifyReport, error) {
	c, err := l.store.GetCustomer(ctx, restaurantID, customerID)
	if err != nil {
		return VerifyReport{}, err
	}
	txs, err := l.store.ListCreditTransactions(ctx, restaurantID, customerID)
	if err != nil {
		return VerifyReport{}, err
	}
	return VerifyReport{
		CustomerID:   customerID,
		Balance:      c.CreditBalance,
		LedgerSum:    Sum(txs),
		Transactions: len(txs),
		Violation:    CheckHistory(c.CreditBalance, txs),
	}, nil
}

// Recompute rewrites the cached balance from the ledger sum and returns it.
func (l *Ledger) Recompute(ctx context.Context, restaurantID, customerID string) (decimal.Decimal, error) {
	const op = "ledger.recompute"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return decimal.Zero, err
	}

	unlock := l.locks.Lock(customerKey(restaurantID, customerID))
	defer unlock()

	var sum decimal.Decimal
	err := l.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetCustomer(ctx, restaurantID, customerID); err != nil {
			return err
		}
		txs, err := tx.ListCreditTransactions(ctx, restaurantID, customerID)
		if err != nil {
			return err
		}
		sum = Sum(txs)
		return tx.SetCustomerBalance(ctx, restaurantID, customerID, sum)
	})
	if err != nil {
		return decimal.Zero, err
	}
	l.logger.Info("recomputed balance",
		logging.Tenant(restaurantID),
		zap.String("customer_id", customerID),
		zap.String("balance", sum.StringFixed(2)),
	)
	return sum, nil
}

func optional(s string) *string {
	s = norm.NFC.String(s)
	if s == "" {
		return nil
	}
	return &s
}

func outcome(err error) string {
	if code := model.CodeOf(err); code != "" {
		return string(code)
	}
	return metrics.Outcome(err)
}

// customerKey names a customer's lock. The length prefix keeps ("a/b", "c")
// and ("a", "b/c") apart.
func customerKey(restaurantID, customerID string) string {
	return fmt.Sprintf("%d:%s/%s", len(restaurantID), restaurantID, customerID)
}
