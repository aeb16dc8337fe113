// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"telegram-storefront/internal/model"
	"telegram-storefront/internal/repository"
)

// profileHistoryLimit bounds the orders and transactions returned with a profile.
const profileHistoryLimit = 10

// Profile is a user together with their most recent activity.
type Profile struct {
	User         *model.User          `json:"user"`
	Orders       []*model.Order       `json:"orders"`
	Transactions []*model.Transaction `json:"transactions"`
}

// AccountService handles user account operations.
type AccountService struct {
	store          repository.Store
	initialBalance decimal.Decimal
	adminIDs       []int64
}

// NewAccountService creates a new AccountService instance.
// Users whose id is in adminIDs become admins on first contact.
func NewAccountService(store repository.Store, initialBalance decimal.Decimal, adminIDs []int64) *AccountService {
	return &AccountService{
		store:          store,
		initialBalance: initialBalance,
		adminIDs:       adminIDs,
	}
}

// EnsureUser ensures a user exists for the identity, creating one if necessary.
// Returns the user and whether it was newly created. A returning user whose
// profile is unchanged is served from a read, so repeated calls do not write.
func (s *AccountService) EnsureUser(ctx context.Context, identity model.Identity) (*model.User, bool, error) {
	admin := s.IsConfiguredAdmin(identity.ID)

	existing, err := s.store.Users().GetByID(ctx, identity.ID)
	switch {
	case err == nil && profileCurrent(existing, identity, admin):
		return existing, false, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, false, storeError(err)
	}

	user, created, err := s.store.Users().Upsert(ctx, identity, s.initialBalance, admin)
	if err != nil {
		return nil, false, storeError(err)
	}

	if created {
		log.Info().
			Int64("user_id", user.ID).
			Str("username", user.Username).
			Bool("is_admin", user.IsAdmin).
			Msg("New user registered")
	}

	return user, created, nil
}

// profileCurrent reports whether an upsert of identity would leave user as is.
// Blank identity fields never overwrite stored ones.
func profileCurrent(user *model.User, identity model.Identity, admin bool) bool {
	if identity.Username != "" && identity.Username != user.Username {
		return false
	}
	if identity.AvatarURL != "" && identity.AvatarURL != user.AvatarURL {
		return false
	}
	return user.IsAdmin || !admin
}

// GetUser retrieves a user by their Telegram ID.
func (s *AccountService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, ErrUserNotFound)
	}
	return user, nil
}

// Profile returns the user with their latest orders and ledger entries.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	orders, err := s.store.Orders().List(ctx, repository.OrderFilter{UserID: userID, Limit: profileHistoryLimit})
	if err != nil {
		return nil, storeError(err)
	}

	txs, err := s.store.Transactions().List(ctx, repository.TransactionFilter{UserID: userID, Limit: profileHistoryLimit})
	if err != nil {
		return nil, storeError(err)
	}

	return &Profile{User: user, Orders: orders, Transactions: txs}, nil
}

// SetAdmin grants or revokes admin rights. Only admins may call it.
func (s *AccountService) SetAdmin(ctx context.Context, actor *model.User, targetID int64, isAdmin bool) (*model.User, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, ErrForbidden
	}

	if err := s.store.Users().Update(ctx, targetID, model.UserPatch{IsAdmin: &isAdmin}); err != nil {
		return nil, notFoundAs(err, ErrUserNotFound)
	}

	log.Info().
		Int64("admin_id", actor.ID).
		Int64("target_id", targetID).
		Bool("is_admin", isAdmin).
		Msg("Admin rights changed")

	return s.GetUser(ctx, targetID)
}

// IsConfiguredAdmin reports whether the id is in the configured admin list.
func (s *AccountService) IsConfiguredAdmin(userID int64) bool {
	return slices.Contains(s.adminIDs, userID)
}

// validateMoney checks the shape of an amount before any arithmetic touches it.
func validateMoney(amount decimal.Decimal) error {
	if err := model.CheckMoney(amount, model.AmountPrecision); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	return nil
}
