package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"telegram-storefront/internal/model"
	"telegram-storefront/internal/pkg/lock"
	"telegram-storefront/internal/repository"
)

// DepositDescription labels every wallet top-up in the ledger.
const DepositDescription = "Wallet top-up"

// WalletService credits balances and reads the ledger.
type WalletService struct {
	store       repository.Store
	locks       *lock.KeyLock
	lockTimeout time.Duration
	maxDeposit  decimal.Decimal
}

// NewWalletService creates a new WalletService instance.
// A zero maxDeposit disables the per-deposit cap.
func NewWalletService(store repository.Store, locks *lock.KeyLock, lockTimeout time.Duration, maxDeposit decimal.Decimal) *WalletService {
	return &WalletService{
		store:       store,
		locks:       locks,
		lockTimeout: lockTimeout,
		maxDeposit:  maxDeposit,
	}
}

// Deposit adds amount to the user's balance and records a deposit entry.
func (s *WalletService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Transaction, error) {
	if err := validateMoney(amount); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	if s.maxDeposit.IsPositive() && amount.GreaterThan(s.maxDeposit) {
		return nil, fmt.Errorf("%w: exceeds limit of %s", ErrInvalidAmount, s.maxDeposit.StringFixed(2))
	}

	var (
		entry   *model.Transaction
		balance decimal.Decimal
	)
	err := s.locks.WithLock(ctx, s.lockTimeout, []string{lock.UserKey(userID)}, func() error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
			user, err := tx.Users().GetForUpdate(ctx, userID)
			if err != nil {
				return notFoundAs(err, ErrUserNotFound)
			}

			balance = user.Balance.Add(amount)
			if err := tx.Users().Update(ctx, userID, model.UserPatch{Balance: &balance}); err != nil {
				return storeError(err)
			}

			entry, err = tx.Transactions().Create(ctx, &model.Transaction{
				UserID:      userID,
				Amount:      amount,
				Type:        model.TxTypeDeposit,
				Description: DepositDescription,
			})
			return storeError(err)
		})
	})
	if err != nil {
		return nil, storeError(err)
	}

	log.Info().
		Int64("user_id", userID).
		Str("amount", amount.StringFixed(2)).
		Str("balance", balance.StringFixed(2)).
		Msg("Wallet topped up")

	return entry, nil
}

// History returns the user's ledger entries, newest first. limit <= 0 returns all.
func (s *WalletService) History(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	txs, err := s.store.Transactions().List(ctx, repository.TransactionFilter{UserID: userID, Limit: limit})
	if err != nil {
		return nil, storeError(err)
	}
	return txs, nil
}
