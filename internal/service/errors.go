package service

import (
	"context"
	"errors"
	"fmt"

	"telegram-storefront/internal/pkg/lock"
	"telegram-storefront/internal/repository"
)

// Service errors. Callers match them with errors.Is.
var (
	ErrNotFound   = repository.ErrNotFound
	ErrValidation = repository.ErrValidation

	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrInvalidAmount   = fmt.Errorf("invalid amount: %w", ErrValidation)

	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrForbidden         = errors.New("admin rights required")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// storeError passes domain errors through and wraps everything else in
// ErrStoreUnavailable. Context errors stay as they are so callers can tell a
// cancelled request from a broken store.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, lock.ErrLockTimeout),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

// notFoundAs replaces a bare ErrNotFound with the entity-specific sentinel.
func notFoundAs(err, sentinel error) error {
	if errors.Is(err, ErrNotFound) {
		return sentinel
	}
	return storeError(err)
}
