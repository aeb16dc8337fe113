package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-storefront/internal/model"
)

// storeFactory returns an empty store for one subtest.
type storeFactory func(t *testing.T) Store

// runStoreContract checks the behaviour every Store implementation shares.
func runStoreContract(t *testing.T, newStore storeFactory) {
	t.Run("products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("orders", func(t *testing.T) { testOrders(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("within tx commits", func(t *testing.T) { testWithinTxCommit(t, newStore(t)) })
	t.Run("within tx rolls back", func(t *testing.T) { testWithinTxRollback(t, newStore(t)) })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newProduct(title string, category model.Category, price string, stock int) *model.Product {
	return &model.Product{
		Title:            title,
		Description:      title + " description",
		Price:            dec(price),
		Category:         category,
		Stock:            stock,
		ImageURL:         "https://img/" + title,
		AutoDeliveryData: "secret for " + title,
	}
}

func testProducts(t *testing.T, s Store) {
	ctx := context.Background()
	repo := s.Products()

	steam, err := repo.Create(ctx, newProduct("CS2 Prime", model.CategorySteam, "15.99", 5))
	require.NoError(t, err)
	require.NotEmpty(t, steam.ID)
	assert.False(t, steam.CreatedAt.IsZero())

	key, err := repo.Create(ctx, &model.Product{
		ID:       "key-1",
		Title:    "Cyberpunk Key",
		Price:    dec("29.99"),
		Category: model.CategoryKeys,
		Stock:    2,
		Region:   "Global",
	})
	require.NoError(t, err)
	assert.Equal(t, "key-1", key.ID)

	got, err := repo.GetByID(ctx, steam.ID)
	require.NoError(t, err)
	assert.Equal(t, "CS2 Prime", got.Title)
	assert.True(t, got.Price.Equal(dec("15.99")))
	assert.Equal(t, model.CategorySteam, got.Category)
	assert.Equal(t, "secret for CS2 Prime", got.AutoDeliveryData)

	all, err := repo.List(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "key-1", all[0].ID, "newest first")

	keys, err := repo.List(ctx, ProductFilter{Category: model.CategoryKeys})
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "key-1", keys[0].ID)

	_, err = repo.Create(ctx, &model.Product{ID: "key-1", Title: "dup", Category: model.CategoryKeys})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.Create(ctx, &model.Product{Title: "", Category: model.CategoryKeys})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = repo.Create(ctx, &model.Product{Title: "bad", Category: "GAMES"})
	assert.ErrorIs(t, err, ErrValidation)

	// Patch merges only set fields.
	title := "CS2 Prime (aged)"
	stock := 7
	require.NoError(t, repo.Update(ctx, steam.ID, model.ProductPatch{Title: &title, Stock: &stock}))
	got, err = repo.GetByID(ctx, steam.ID)
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, 7, got.Stock)
	assert.True(t, got.Price.Equal(dec("15.99")))
	assert.Equal(t, "secret for CS2 Prime", got.AutoDeliveryData)

	negative := -1
	err = repo.Update(ctx, steam.ID, model.ProductPatch{Stock: &negative})
	assert.ErrorIs(t, err, ErrValidation)
	got, err = repo.GetByID(ctx, steam.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)

	assert.ErrorIs(t, repo.Update(ctx, "missing", model.ProductPatch{Stock: &stock}), ErrNotFound)

	require.NoError(t, repo.Delete(ctx, steam.ID))
	_, err = repo.GetByID(ctx, steam.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, steam.ID), ErrNotFound)
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	repo := s.Users()

	u, err := repo.Create(ctx, &model.User{ID: 42, Username: "alice", Balance: dec("10.50")})
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	assert.True(t, u.Balance.Equal(dec("10.50")))

	_, err = repo.Create(ctx, &model.User{ID: 42})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.Create(ctx, &model.User{ID: 43, Balance: dec("-1")})
	assert.ErrorIs(t, err, ErrValidation)

	// Upsert of a new identity creates it with the initial balance.
	bob, created, err := repo.Upsert(ctx, model.Identity{ID: 7, Username: "bob", AvatarURL: "a.png"}, dec("5"), true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, bob.IsAdmin)
	assert.True(t, bob.Balance.Equal(dec("5")))

	// Upsert of an existing identity keeps balance and blank profile fields.
	alice, created, err := repo.Upsert(ctx, model.Identity{ID: 42, Username: "alice2"}, dec("99"), false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice2", alice.Username)
	assert.True(t, alice.Balance.Equal(dec("10.50")))
	assert.False(t, alice.IsAdmin)

	// Upsert never revokes admin.
	bob, _, err = repo.Upsert(ctx, model.Identity{ID: 7}, decimal.Zero, false)
	require.NoError(t, err)
	assert.True(t, bob.IsAdmin)
	assert.Equal(t, "bob", bob.Username)
	assert.Equal(t, "a.png", bob.AvatarURL)

	admins, err := repo.List(ctx, UserFilter{AdminsOnly: true})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, int64(7), admins[0].ID)

	everyone, err := repo.List(ctx, UserFilter{})
	require.NoError(t, err)
	assert.Len(t, everyone, 2)

	balance := dec("0.01")
	require.NoError(t, repo.Update(ctx, 42, model.UserPatch{Balance: &balance}))
	got, err := repo.GetForUpdate(ctx, 42)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(balance))

	negative := dec("-0.01")
	assert.ErrorIs(t, repo.Update(ctx, 42, model.UserPatch{Balance: &negative}), ErrValidation)
	assert.ErrorIs(t, repo.Update(ctx, 404, model.UserPatch{Balance: &balance}), ErrNotFound)

	require.NoError(t, repo.Delete(ctx, 42))
	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 42), ErrNotFound)
}

func testOrders(t *testing.T, s Store) {
	ctx := context.Background()
	repo := s.Orders()

	first, err := repo.Create(ctx, &model.Order{
		UserID:       1,
		ProductID:    "p1",
		ProductTitle: "One",
		Price:        dec("1.20"),
		DeliveryData: "data-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.OrderStatusCompleted, first.Status)
	assert.False(t, first.Date.IsZero())

	for i, uid := range []int64{1, 2} {
		_, err := repo.Create(ctx, &model.Order{UserID: uid, ProductID: "p2", ProductTitle: "Two", Price: dec("2"), Status: model.OrderStatusCompleted})
		require.NoError(t, err, "order %d", i)
	}

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "data-1", got.DeliveryData)
	assert.True(t, got.Price.Equal(dec("1.20")))

	mine, err := repo.List(ctx, OrderFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "p2", mine[0].ProductID, "newest first")

	limited, err := repo.List(ctx, OrderFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, int64(2), limited[0].UserID)

	byProduct, err := repo.List(ctx, OrderFilter{ProductID: "p1"})
	require.NoError(t, err)
	assert.Len(t, byProduct, 1)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Create(ctx, &model.Order{ProductID: "p1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func testTransactions(t *testing.T, s Store) {
	ctx := context.Background()
	repo := s.Transactions()

	dep, err := repo.Create(ctx, &model.Transaction{UserID: 1, Amount: dec("50"), Type: model.TxTypeDeposit, Description: "Wallet top-up"})
	require.NoError(t, err)
	assert.NotEmpty(t, dep.ID)
	assert.False(t, dep.Date.IsZero())

	_, err = repo.Create(ctx, &model.Transaction{UserID: 1, Amount: dec("-15.99"), Type: model.TxTypePurchase, Description: "Bought X"})
	require.NoError(t, err)

	all, err := repo.List(ctx, TransactionFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.TxTypePurchase, all[0].Type, "newest first")
	assert.True(t, all[0].Amount.Equal(dec("-15.99")))

	deposits, err := repo.List(ctx, TransactionFilter{UserID: 1, Type: model.TxTypeDeposit})
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, dep.ID, deposits[0].ID)

	got, err := repo.GetByID(ctx, dep.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wallet top-up", got.Description)

	_, err = repo.Create(ctx, &model.Transaction{UserID: 1, Amount: decimal.Zero, Type: model.TxTypeDeposit})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = repo.Create(ctx, &model.Transaction{UserID: 1, Amount: dec("1"), Type: "refund"})
	assert.ErrorIs(t, err, ErrValidation)

	none, err := repo.List(ctx, TransactionFilter{UserID: 2})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testWithinTxCommit(t *testing.T, s Store) {
	ctx := context.Background()
	p, err := s.Products().Create(ctx, newProduct("Gold", model.CategoryCurrency, "9.50", 3))
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		locked, err := tx.Products().GetForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		stock := locked.Stock - 1
		if err := tx.Products().Update(ctx, p.ID, model.ProductPatch{Stock: &stock}); err != nil {
			return err
		}

		// Reads inside the unit of work see its own writes; nested calls join it.
		return tx.WithinTx(ctx, func(ctx context.Context, inner Store) error {
			again, err := inner.Products().GetByID(ctx, p.ID)
			if err != nil {
				return err
			}
			if again.Stock != 2 {
				return errors.New("write not visible inside unit of work")
			}
			_, err = inner.Orders().Create(ctx, &model.Order{UserID: 1, ProductID: p.ID, ProductTitle: p.Title, Price: p.Price})
			return err
		})
	})
	require.NoError(t, err)

	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	orders, err := s.Orders().List(ctx, OrderFilter{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func testWithinTxRollback(t *testing.T, s Store) {
	ctx := context.Background()
	p, err := s.Products().Create(ctx, newProduct("Gold", model.CategoryCurrency, "9.50", 3))
	require.NoError(t, err)
	_, err = s.Users().Create(ctx, &model.User{ID: 1, Balance: dec("20")})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		stock := 0
		if err := tx.Products().Update(ctx, p.ID, model.ProductPatch{Stock: &stock}); err != nil {
			return err
		}
		balance := dec("10.50")
		if err := tx.Users().Update(ctx, 1, model.UserPatch{Balance: &balance}); err != nil {
			return err
		}
		if _, err := tx.Transactions().Create(ctx, &model.Transaction{UserID: 1, Amount: dec("-9.50"), Type: model.TxTypePurchase}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	u, err := s.Users().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, u.Balance.Equal(dec("20")))

	txs, err := s.Transactions().List(ctx, TransactionFilter{UserID: 1})
	require.NoError(t, err)
	assert.Empty(t, txs)
}
