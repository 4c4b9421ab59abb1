package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/offpos/internal/model"
)

func creditTx(id, customerID, amount, after string, typ model.TransactionType, at time.Time) model.CreditTransaction {
	return model.CreditTransaction{
		ID:           id,
		RestaurantID: testRestaurant,
		CustomerID:   customerID,
		Amount:       dec(amount),
		Type:         typ,
		BalanceAfter: dec(after),
		CreatedAt:    at,
	}
}

func TestUpsertCustomer_NeverWritesBalance(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCustomer("c1", "Asha")
	c.CreditBalance = dec("500")
	require.NoError(t, s.UpsertCustomer(ctx, c))

	got, err := s.GetCustomer(ctx, testRestaurant, "c1")
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.IsZero(), "new customers start at zero")

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		return tx.SetCustomerBalance(ctx, testRestaurant, "c1", dec("40"))
	}))

	c.Name = "Asha K"
	c.CreditBalance = decimal.Zero
	require.NoError(t, s.UpsertCustomer(ctx, c))

	got, err = s.GetCustomer(ctx, testRestaurant, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.Name)
	assert.True(t, got.CreditBalance.Equal(dec("40")), "profile update must keep the ledger balance")
}

func TestListCustomers_SortedByName(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCustomer(ctx, createTestCustomer("c2", "Zoya")))
	require.NoError(t, s.UpsertCustomer(ctx, createTestCustomer("c1", "Arjun")))

	list, err := s.ListCustomers(ctx, testRestaurant)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Arjun", list[0].Name)
	assert.Equal(t, "Zoya", list[1].Name)
}

func TestWithTx_InsertsLedgerRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCustomer(ctx, createTestCustomer("c1", "Asha")))

	var seqs []int64
	err := s.WithTx(ctx, func(tx *Tx) error {
		seq, err := tx.InsertCreditTransaction(ctx, creditTx("t1", "c1", "100", "100", model.TxCredit, baseTime), decimal.Zero)
		if err != nil {
			return err
		}
		seqs = append(seqs, seq)
		seq, err = tx.InsertCreditTransaction(ctx, creditTx("t2", "c1", "-30", "70", model.TxPayment, baseTime), dec("100"))
		if err != nil {
			return err
		}
		seqs = append(seqs, seq)
		return tx.SetCustomerBalance(ctx, testRestaurant, "c1", dec("70"))
	})
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	assert.Less(t, seqs[0], seqs[1])

	history, err := s.ListCreditTransactions(ctx, testRestaurant, "c1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "t1", history[0].ID, "same timestamp falls back to seq order")
	assert.Equal(t, "t2", history[1].ID)
	assert.Equal(t, model.TxPayment, history[1].Type)
	assert.True(t, history[1].BalanceAfter.Equal(dec("70")))

	got, err := s.GetCustomer(ctx, testRestaurant, "c1")
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.Equal(dec("70")))
}

func TestListCreditTransactions_AppendOrderOverTimestamps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCustomer(ctx, createTestCustomer("c1", "Asha")))

	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		_, ok, err := tx.LastCreditTransaction(ctx, testRestaurant, "c1")
		if err != nil {
			return err
		}
		assert.False(t, ok, "empty ledger has no last row")

		if _, err := tx.InsertCreditTransaction(ctx, creditTx("t1", "c1", "500", "500", model.TxCredit, baseTime.Add(time.Hour)), decimal.Zero); err != nil {
			return err
		}
		// Appended second with an earlier timestamp.
		if _, err := tx.InsertCreditTransaction(ctx, creditTx("t2", "c1", "-200", "300", model.TxPayment, baseTime), dec("500")); err != nil {
			return err
		}

		last, ok, err := tx.LastCreditTransaction(ctx, testRestaurant, "c1")
		if err != nil {
			return err
		}
		assert.True(t, ok)
		assert.Equal(t, "t2", last.ID)
		return tx.SetCustomerBalance(ctx, testRestaurant, "c1", dec("300"))
	}))

	history, err := s.ListCreditTransactions(ctx, testRestaurant, "c1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "t1", history[0].ID)
	assert.Equal(t, "t2", history[1].ID)
	assert.True(t, history[1].BalanceAfter.Equal(dec("300")))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCustomer(ctx, createTestCustomer("c1", "Asha")))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.InsertCreditTransaction(ctx, creditTx("t1", "c1", "100", "100", model.TxCredit, baseTime), decimal.Zero); err != nil {
			return err
		}
		if err := tx.SetCustomerBalance(ctx, testRestaurant, "c1", dec("100")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, model.ErrIOFailure)

	history, err := s.ListCreditTransactions(ctx, testRestaurant, "c1")
	require.NoError(t, err)
	assert.Empty(t, history)

	got, err := s.GetCustomer(ctx, testRestaurant, "c1")
	require.NoError(t, err)
	assert.True(t, got.CreditBalance.IsZero())
}

func TestWithTx_ValidationErrorsKeepCode(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCustomer(ctx, createTestCustomer("c1", "Asha")))

	err := s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.InsertCreditTransaction(ctx, creditTx("t1", "c1", "-10", "-10", model.TxPayment, baseTime), decimal.Zero)
		return err
	})
	assert.ErrorIs(t, err, model.ErrExceedsBalance)

	err = s.WithTx(ctx, func(tx *Tx) error {
		return tx.SetCustomerBalance(ctx, testRestaurant, "missing", dec("1"))
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteCustomer_RemovesLedger(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertCustomer(ctx, createTestCustomer("c1", "Asha")))
	require.NoError(t, s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.InsertCreditTransaction(ctx, creditTx("t1", "c1", "100", "100", model.TxCredit, baseTime), decimal.Zero)
		return err
	}))

	require.NoError(t, s.DeleteCustomer(ctx, testRestaurant, "c1"))

	_, err := s.GetCustomer(ctx, testRestaurant, "c1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	history, err := s.ListCreditTransactions(ctx, testRestaurant, "c1")
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, s.DeleteCustomer(ctx, testRestaurant, "c1"), model.ErrNotFound)
}
