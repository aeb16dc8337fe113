package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"telegram-storefront/internal/model"
	"telegram-storefront/internal/pkg/lock"
	"telegram-storefront/internal/repository"
	"telegram-storefront/internal/shop"
)

const (
	adminID int64 = 1
	buyerID int64 = 100
)

// testingT is satisfied by *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

// fixture wires every service against one store, the way cmd/bot does.
type fixture struct {
	store    repository.Store
	locks    *lock.KeyLock
	accounts *AccountService
	wallet   *WalletService
	purchase *PurchaseService
	catalog  *CatalogService
}

func newFixture(t testingT, store repository.Store) *fixture {
	t.Helper()
	if store == nil {
		store = repository.NewMemoryStore()
	}
	locks := lock.NewKeyLock()
	timeout := 2 * time.Second

	return &fixture{
		store:    store,
		locks:    locks,
		accounts: NewAccountService(store, decimal.Zero, []int64{adminID}),
		wallet:   NewWalletService(store, locks, timeout, decimal.NewFromInt(10000)),
		purchase: NewPurchaseService(store, locks, timeout),
		catalog:  NewCatalogService(store, locks, timeout),
	}
}

// seeded returns a fixture with the demo catalog and one buyer holding balance.
func seeded(t testingT, balance string) *fixture {
	t.Helper()
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.catalog.Seed(ctx, shop.DefaultCatalog())
	require.NoError(t, err)

	f.user(t, buyerID, balance)
	return f
}

func (f *fixture) user(t testingT, id int64, balance string) *model.User {
	t.Helper()
	u, err := f.store.Users().Create(context.Background(), &model.User{
		ID:       id,
		Username: "buyer",
		Balance:  decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) admin(t testingT) *model.User {
	t.Helper()
	u, _, err := f.accounts.EnsureUser(context.Background(), model.Identity{ID: adminID, Username: "admin"})
	require.NoError(t, err)
	require.True(t, u.IsAdmin)
	return u
}

func (f *fixture) product(t testingT, id string) *model.Product {
	t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) balance(t testingT, id int64) decimal.Decimal {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u.Balance
}

func (f *fixture) ledger(t testingT, id int64) []*model.Transaction {
	t.Helper()
	txs, err := f.store.Transactions().List(context.Background(), repository.TransactionFilter{UserID: id})
	require.NoError(t, err)
	return txs
}

func (f *fixture) orders(t testingT, id int64) []*model.Order {
	t.Helper()
	orders, err := f.store.Orders().List(context.Background(), repository.OrderFilter{UserID: id})
	require.NoError(t, err)
	return orders
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// faultyStore fails order creation inside units of work, after stock and
// balance have already been written.
type faultyStore struct {
	repository.Store
}

var errDiskFull = errors.New("disk full")

func (s faultyStore) Orders() repository.Orders {
	return faultyOrders{s.Store.Orders()}
}

func (s faultyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return fn(ctx, faultyStore{tx})
	})
}

type faultyOrders struct {
	repository.Orders
}

func (faultyOrders) Create(context.Context, *model.Order) (*model.Order, error) {
	return nil, errDiskFull
}
