package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"telegram-storefront/internal/model"
)

// memState is the whole dataset of a MemoryStore. Ordered id slices and the
// order/transaction logs are kept newest first.
type memState struct {
	Products     map[string]model.Product `json:"products"`
	ProductIDs   []string                 `json:"product_ids"`
	Users        map[int64]model.User     `json:"users"`
	UserIDs      []int64                  `json:"user_ids"`
	Orders       []model.Order            `json:"orders"`
	Transactions []model.Transaction      `json:"transactions"`
}

func newMemState() *memState {
	return &memState{
		Products: make(map[string]model.Product),
		Users:    make(map[int64]model.User),
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		Products:     make(map[string]model.Product, len(st.Products)),
		ProductIDs:   append([]string(nil), st.ProductIDs...),
		Users:        make(map[int64]model.User, len(st.Users)),
		UserIDs:      append([]int64(nil), st.UserIDs...),
		Orders:       append([]model.Order(nil), st.Orders...),
		Transactions: append([]model.Transaction(nil), st.Transactions...),
	}
	for id, p := range st.Products {
		c.Products[id] = p
	}
	for id, u := range st.Users {
		c.Users[id] = u
	}
	return c
}

// memAccess gives repositories read and write access to a memState.
type memAccess interface {
	read(ctx context.Context, fn func(st *memState) error) error
	write(ctx context.Context, fn func(st *memState) error) error
}

// MemoryStore is an in-process Store. A single mutex serializes every call, and
// units of work are staged on a copy of the state that is swapped in on success.
// When a snapshot path is set, every committed write is flushed to disk first.
type MemoryStore struct {
	mu           sync.Mutex
	state        *memState
	snapshotPath string
}

// NewMemoryStore creates an empty MemoryStore that lives only in memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

// OpenMemoryStore creates a MemoryStore persisted to the JSON snapshot at path.
// An existing snapshot is loaded; a missing one starts an empty store.
func OpenMemoryStore(path string) (*MemoryStore, error) {
	s := &MemoryStore{state: newMemState(), snapshotPath: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info().Str("path", path).Msg("No store snapshot found, starting empty")
			return s, nil
		}
		return nil, fmt.Errorf("failed to read store snapshot: %w", err)
	}

	st := newMemState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("failed to decode store snapshot: %w", err)
	}
	if st.Products == nil {
		st.Products = make(map[string]model.Product)
	}
	if st.Users == nil {
		st.Users = make(map[int64]model.User)
	}
	s.state = st

	log.Info().
		Str("path", path).
		Int("products", len(st.Products)).
		Int("users", len(st.Users)).
		Msg("Store snapshot loaded")

	return s, nil
}

func (s *MemoryStore) read(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *MemoryStore) write(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(fn)
}

// commit applies fn to a copy of the state and swaps it in. Callers hold s.mu.
func (s *MemoryStore) commit(fn func(st *memState) error) error {
	staged := s.state.clone()
	if err := fn(staged); err != nil {
		return err
	}
	if err := s.persist(staged); err != nil {
		return err
	}
	s.state = staged
	return nil
}

// persist writes the snapshot atomically via a temp file and rename.
func (s *MemoryStore) persist(st *memState) error {
	if s.snapshotPath == "" {
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode store snapshot: %w", err)
	}
	if dir := filepath.Dir(s.snapshotPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write store snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return fmt.Errorf("failed to replace store snapshot: %w", err)
	}
	return nil
}

// Products returns the product repository.
func (s *MemoryStore) Products() Products { return &memProducts{acc: s} }

// Users returns the user repository.
func (s *MemoryStore) Users() Users { return &memUsers{acc: s} }

// Orders returns the order repository.
func (s *MemoryStore) Orders() Orders { return &memOrders{acc: s} }

// Transactions returns the transaction repository.
func (s *MemoryStore) Transactions() Transactions { return &memTransactions{acc: s} }

// WithinTx runs fn while holding the store mutex. fn must only use tx; calling
// back into s from fn deadlocks.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(func(st *memState) error {
		return fn(ctx, &memTx{st: st})
	})
}

// memTx is a Store view over staged state inside MemoryStore.WithinTx.
type memTx struct {
	st *memState
}

func (t *memTx) read(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t.st)
}

func (t *memTx) write(ctx context.Context, fn func(st *memState) error) error {
	return t.read(ctx, fn)
}

func (t *memTx) Products() Products         { return &memProducts{acc: t} }
func (t *memTx) Users() Users               { return &memUsers{acc: t} }
func (t *memTx) Orders() Orders             { return &memOrders{acc: t} }
func (t *memTx) Transactions() Transactions { return &memTransactions{acc: t} }

// WithinTx joins the enclosing unit of work.
func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

func now() time.Time {
	return time.Now().UTC()
}

// ========== Products ==========

type memProducts struct {
	acc memAccess
}

func (r *memProducts) List(ctx context.Context, filter ProductFilter) ([]*model.Product, error) {
	products := []*model.Product{}
	err := r.acc.read(ctx, func(st *memState) error {
		for _, id := range st.ProductIDs {
			p := st.Products[id]
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			products = append(products, &p)
		}
		return nil
	})
	return products, err
}

func (r *memProducts) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var product *model.Product
	err := r.acc.read(ctx, func(st *memState) error {
		p, ok := st.Products[id]
		if !ok {
			return ErrNotFound
		}
		product = &p
		return nil
	})
	return product, err
}

func (r *memProducts) GetForUpdate(ctx context.Context, id string) (*model.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *memProducts) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	p := *product
	if p.ID == "" {
		p.ID = newID()
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	err := r.acc.write(ctx, func(st *memState) error {
		if _, exists := st.Products[p.ID]; exists {
			return fmt.Errorf("%w: product %s", ErrConflict, p.ID)
		}
		st.Products[p.ID] = p
		st.ProductIDs = append([]string{p.ID}, st.ProductIDs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *memProducts) Update(ctx context.Context, id string, patch model.ProductPatch) error {
	return r.acc.write(ctx, func(st *memState) error {
		p, ok := st.Products[id]
		if !ok {
			return ErrNotFound
		}
		patch.Apply(&p)
		if err := validateProduct(&p); err != nil {
			return err
		}
		p.ID = id
		p.UpdatedAt = now()
		st.Products[id] = p
		return nil
	})
}

func (r *memProducts) Delete(ctx context.Context, id string) error {
	return r.acc.write(ctx, func(st *memState) error {
		if _, ok := st.Products[id]; !ok {
			return ErrNotFound
		}
		delete(st.Products, id)
		ids := st.ProductIDs[:0]
		for _, pid := range st.ProductIDs {
			if pid != id {
				ids = append(ids, pid)
			}
		}
		st.ProductIDs = ids
		return nil
	})
}

// ========== Users ==========

type memUsers struct {
	acc memAccess
}

func (r *memUsers) List(ctx context.Context, filter UserFilter) ([]*model.User, error) {
	users := []*model.User{}
	err := r.acc.read(ctx, func(st *memState) error {
		for _, id := range st.UserIDs {
			u := st.Users[id]
			if filter.AdminsOnly && !u.IsAdmin {
				continue
			}
			users = append(users, &u)
		}
		return nil
	})
	return users, err
}

func (r *memUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user *model.User
	err := r.acc.read(ctx, func(st *memState) error {
		u, ok := st.Users[id]
		if !ok {
			return ErrNotFound
		}
		user = &u
		return nil
	})
	return user, err
}

func (r *memUsers) GetForUpdate(ctx context.Context, id int64) (*model.User, error) {
	return r.GetByID(ctx, id)
}

func (r *memUsers) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	u := *user
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt

	err := r.acc.write(ctx, func(st *memState) error {
		if _, exists := st.Users[u.ID]; exists {
			return fmt.Errorf("%w: user %d", ErrConflict, u.ID)
		}
		insertUser(st, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func insertUser(st *memState, u model.User) {
	st.Users[u.ID] = u
	st.UserIDs = append([]int64{u.ID}, st.UserIDs...)
}

func (r *memUsers) Upsert(ctx context.Context, identity model.Identity, initialBalance decimal.Decimal, admin bool) (*model.User, bool, error) {
	if identity.ID == 0 {
		return nil, false, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if initialBalance.IsNegative() {
		return nil, false, fmt.Errorf("%w: initial balance must not be negative", ErrValidation)
	}

	var (
		user    model.User
		created bool
	)
	err := r.acc.write(ctx, func(st *memState) error {
		u, ok := st.Users[identity.ID]
		if !ok {
			u = model.User{
				ID:        identity.ID,
				Username:  identity.Username,
				Balance:   initialBalance,
				IsAdmin:   admin,
				AvatarURL: identity.AvatarURL,
				CreatedAt: now(),
			}
			u.UpdatedAt = u.CreatedAt
			insertUser(st, u)
			user, created = u, true
			return nil
		}

		if identity.Username != "" {
			u.Username = identity.Username
		}
		if identity.AvatarURL != "" {
			u.AvatarURL = identity.AvatarURL
		}
		u.IsAdmin = u.IsAdmin || admin
		u.UpdatedAt = now()
		st.Users[u.ID] = u
		user = u
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &user, created, nil
}

func (r *memUsers) Update(ctx context.Context, id int64, patch model.UserPatch) error {
	return r.acc.write(ctx, func(st *memState) error {
		u, ok := st.Users[id]
		if !ok {
			return ErrNotFound
		}
		patch.Apply(&u)
		if err := validateUser(&u); err != nil {
			return err
		}
		u.UpdatedAt = now()
		st.Users[id] = u
		return nil
	})
}

func (r *memUsers) Delete(ctx context.Context, id int64) error {
	return r.acc.write(ctx, func(st *memState) error {
		if _, ok := st.Users[id]; !ok {
			return ErrNotFound
		}
		delete(st.Users, id)
		ids := st.UserIDs[:0]
		for _, uid := range st.UserIDs {
			if uid != id {
				ids = append(ids, uid)
			}
		}
		st.UserIDs = ids
		return nil
	})
}

// ========== Orders ==========

type memOrders struct {
	acc memAccess
}

func (r *memOrders) List(ctx context.Context, filter OrderFilter) ([]*model.Order, error) {
	orders := []*model.Order{}
	err := r.acc.read(ctx, func(st *memState) error {
		for _, o := range st.Orders {
			if filter.UserID != 0 && o.UserID != filter.UserID {
				continue
			}
			if filter.ProductID != "" && o.ProductID != filter.ProductID {
				continue
			}
			orders = append(orders, &o)
			if filter.Limit > 0 && len(orders) == filter.Limit {
				break
			}
		}
		return nil
	})
	return orders, err
}

func (r *memOrders) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var order *model.Order
	err := r.acc.read(ctx, func(st *memState) error {
		for _, o := range st.Orders {
			if o.ID == id {
				order = &o
				return nil
			}
		}
		return ErrNotFound
	})
	return order, err
}

func (r *memOrders) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	o := *order
	if o.ID == "" {
		o.ID = newID()
	}
	if o.Date.IsZero() {
		o.Date = now()
	}
	if o.Status == "" {
		o.Status = model.OrderStatusCompleted
	}

	err := r.acc.write(ctx, func(st *memState) error {
		st.Orders = append([]model.Order{o}, st.Orders...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ========== Transactions ==========

type memTransactions struct {
	acc memAccess
}

func (r *memTransactions) List(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error) {
	txs := []*model.Transaction{}
	err := r.acc.read(ctx, func(st *memState) error {
		for _, tx := range st.Transactions {
			if filter.UserID != 0 && tx.UserID != filter.UserID {
				continue
			}
			if filter.Type != "" && tx.Type != filter.Type {
				continue
			}
			txs = append(txs, &tx)
			if filter.Limit > 0 && len(txs) == filter.Limit {
				break
			}
		}
		return nil
	})
	return txs, err
}

func (r *memTransactions) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	var found *model.Transaction
	err := r.acc.read(ctx, func(st *memState) error {
		for _, tx := range st.Transactions {
			if tx.ID == id {
				found = &tx
				return nil
			}
		}
		return ErrNotFound
	})
	return found, err
}

func (r *memTransactions) Create(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return nil, err
	}

	t := *tx
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Date.IsZero() {
		t.Date = now()
	}

	err := r.acc.write(ctx, func(st *memState) error {
		st.Transactions = append([]model.Transaction{t}, st.Transactions...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}
