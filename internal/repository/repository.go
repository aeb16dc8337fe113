// Package repository provides data access layer implementations.
//
// Two stores satisfy the same Store contract: PostgresStore backed by pgx, and
// MemoryStore kept in process with an optional JSON snapshot on disk.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"telegram-storefront/internal/model"
)

// Common errors for repository operations.
var (
	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("record already exists")
)

// ProductFilter narrows Products.List. Zero value matches everything.
type ProductFilter struct {
	Category model.Category
}

// UserFilter narrows Users.List. Zero value matches everything.
type UserFilter struct {
	AdminsOnly bool
}

// OrderFilter narrows Orders.List. Zero fields are ignored; Limit <= 0 means no limit.
type OrderFilter struct {
	UserID    int64
	ProductID string
	Limit     int
}

// TransactionFilter narrows Transactions.List. Zero fields are ignored; Limit <= 0 means no limit.
type TransactionFilter struct {
	UserID int64
	Type   model.TxType
	Limit  int
}

// Products persists catalog entries.
type Products interface {
	List(ctx context.Context, filter ProductFilter) ([]*model.Product, error)
	GetByID(ctx context.Context, id string) (*model.Product, error)
	// GetForUpdate reads a product and, inside WithinTx, locks it until the unit of work ends.
	GetForUpdate(ctx context.Context, id string) (*model.Product, error)
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	Update(ctx context.Context, id string, patch model.ProductPatch) error
	// Delete returns ErrNotFound when the product does not exist.
	Delete(ctx context.Context, id string) error
}

// Users persists buyer accounts.
type Users interface {
	List(ctx context.Context, filter UserFilter) ([]*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetForUpdate(ctx context.Context, id int64) (*model.User, error)
	// Create fails with ErrConflict if the id is taken.
	Create(ctx context.Context, user *model.User) (*model.User, error)
	// Upsert inserts a user for the identity or refreshes its profile fields.
	// Balance is never touched; admin is only ever raised, never cleared.
	Upsert(ctx context.Context, identity model.Identity, initialBalance decimal.Decimal, admin bool) (*model.User, bool, error)
	Update(ctx context.Context, id int64, patch model.UserPatch) error
	// Delete returns ErrNotFound when the user does not exist.
	Delete(ctx context.Context, id int64) error
}

// Orders is the append-only order log.
type Orders interface {
	List(ctx context.Context, filter OrderFilter) ([]*model.Order, error)
	GetByID(ctx context.Context, id string) (*model.Order, error)
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
}

// Transactions is the append-only balance ledger.
type Transactions interface {
	List(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error)
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
	Create(ctx context.Context, tx *model.Transaction) (*model.Transaction, error)
}

// Store groups the entity repositories and runs atomic units of work.
type Store interface {
	Products() Products
	Users() Users
	Orders() Orders
	Transactions() Transactions
	// WithinTx runs fn against a store bound to one unit of work. All writes made
	// through tx are committed if fn returns nil and discarded otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// newID returns a fresh identifier for products, orders and transactions.
func newID() string {
	return uuid.NewString()
}

func validateProduct(p *model.Product) error {
	switch {
	case p.Title == "":
		return fmt.Errorf("%w: product title is required", ErrValidation)
	case !p.Category.Valid():
		return fmt.Errorf("%w: unknown product category %q", ErrValidation, p.Category)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: product price must not be negative", ErrValidation)
	case p.Stock < 0:
		return fmt.Errorf("%w: product stock must not be negative", ErrValidation)
	}
	return nil
}

func validateUser(u *model.User) error {
	switch {
	case u.ID == 0:
		return fmt.Errorf("%w: user id is required", ErrValidation)
	case u.Balance.IsNegative():
		return fmt.Errorf("%w: user balance must not be negative", ErrValidation)
	}
	return nil
}

func validateOrder(o *model.Order) error {
	switch {
	case o.UserID == 0:
		return fmt.Errorf("%w: order user id is required", ErrValidation)
	case o.ProductID == "":
		return fmt.Errorf("%w: order product id is required", ErrValidation)
	case o.Price.IsNegative():
		return fmt.Errorf("%w: order price must not be negative", ErrValidation)
	}
	return nil
}

func validateTransaction(tx *model.Transaction) error {
	switch {
	case tx.UserID == 0:
		return fmt.Errorf("%w: transaction user id is required", ErrValidation)
	case tx.Type != model.TxTypeDeposit && tx.Type != model.TxTypePurchase:
		return fmt.Errorf("%w: unknown transaction type %q", ErrValidation, tx.Type)
	case tx.Amount.IsZero():
		return fmt.Errorf("%w: transaction amount must not be zero", ErrValidation)
	}
	return nil
}
