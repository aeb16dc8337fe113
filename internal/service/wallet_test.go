package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-storefront/internal/model"
)

func TestDeposit_Success(t *testing.T) {
	f := seeded(t, "0")
	ctx := context.Background()

	entry, err := f.wallet.Deposit(ctx, buyerID, dec("50"))
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, buyerID, entry.UserID)
	assert.True(t, entry.Amount.Equal(dec("50")))
	assert.Equal(t, model.TxTypeDeposit, entry.Type)
	assert.Equal(t, DepositDescription, entry.Description)
	assert.True(t, f.balance(t, buyerID).Equal(dec("50")))

	_, err = f.wallet.Deposit(ctx, buyerID, dec("0.25"))
	require.NoError(t, err)
	assert.True(t, f.balance(t, buyerID).Equal(dec("50.25")))

	history, err := f.wallet.History(ctx, buyerID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Amount.Equal(dec("0.25")), "newest first")

	limited, err := f.wallet.History(ctx, buyerID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeposit_InvalidAmount(t *testing.T) {
	f := seeded(t, "5")
	ctx := context.Background()

	for _, amount := range []string{"0", "-1", "-0.01", "0.001", "10000.01", "1e20000000", "-1e20000000", "1e-20000000"} {
		t.Run(amount, func(t *testing.T) {
			_, err := f.wallet.Deposit(ctx, buyerID, dec(amount))
			assert.ErrorIs(t, err, ErrInvalidAmount)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.True(t, f.balance(t, buyerID).Equal(dec("5")))
	assert.Empty(t, f.ledger(t, buyerID))
}

func TestDeposit_MaxDepositBoundary(t *testing.T) {
	f := seeded(t, "0")

	_, err := f.wallet.Deposit(context.Background(), buyerID, dec("10000"))
	require.NoError(t, err)
}

func TestDeposit_NoCapWhenZero(t *testing.T) {
	f := seeded(t, "0")
	f.wallet = NewWalletService(f.store, f.locks, f.wallet.lockTimeout, dec("0"))

	_, err := f.wallet.Deposit(context.Background(), buyerID, dec("250000"))
	require.NoError(t, err)
}

func TestDeposit_HugeExponentRejectedBeforeArithmetic(t *testing.T) {
	f := seeded(t, "0")
	f.wallet = NewWalletService(f.store, f.locks, f.wallet.lockTimeout, dec("0"))

	var amount decimal.Decimal
	require.NoError(t, json.Unmarshal([]byte(`1e20000000`), &amount))

	start := time.Now()
	_, err := f.wallet.Deposit(context.Background(), buyerID, amount)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Less(t, time.Since(start), time.Second)

	_, err = f.wallet.Deposit(context.Background(), buyerID, dec("1000000000000"))
	assert.ErrorIs(t, err, ErrInvalidAmount, "more integer digits than a balance column holds")
	assert.True(t, f.balance(t, buyerID).IsZero())
}

func TestDeposit_UnknownUser(t *testing.T) {
	f := seeded(t, "0")

	_, err := f.wallet.Deposit(context.Background(), 404, dec("10"))
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.ledger(t, 404))
}

func TestDepositThenPurchase(t *testing.T) {
	f := seeded(t, "0")
	ctx := context.Background()

	_, err := f.purchase.Purchase(ctx, buyerID, "3")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = f.wallet.Deposit(ctx, buyerID, dec("1.20"))
	require.NoError(t, err)

	_, err = f.purchase.Purchase(ctx, buyerID, "3")
	require.NoError(t, err)
	assert.True(t, f.balance(t, buyerID).IsZero())

	ledger := f.ledger(t, buyerID)
	require.Len(t, ledger, 2)
	assert.Equal(t, model.TxTypePurchase, ledger[0].Type)
	assert.Equal(t, model.TxTypeDeposit, ledger[1].Type)
}
