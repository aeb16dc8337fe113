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
	"telegram-storefront/internal/shop"
)

// CatalogService serves the storefront and lets admins manage products.
type CatalogService struct {
	store       repository.Store
	locks       *lock.KeyLock
	lockTimeout time.Duration
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService(store repository.Store, locks *lock.KeyLock, lockTimeout time.Duration) *CatalogService {
	return &CatalogService{
		store:       store,
		locks:       locks,
		lockTimeout: lockTimeout,
	}
}

// Query returns the products visible under a storefront tab and search box.
func (s *CatalogService) Query(ctx context.Context, category model.Category, search string) ([]*model.Product, error) {
	products, err := s.store.Products().List(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, storeError(err)
	}
	return shop.QueryProducts(products, category, search), nil
}

// Get returns one product.
func (s *CatalogService) Get(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrProductNotFound)
	}
	return product, nil
}

// CreateProduct adds a product to the catalog.
func (s *CatalogService) CreateProduct(ctx context.Context, actor *model.User, product *model.Product) (*model.Product, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if err := validatePrice(product.Price); err != nil {
		return nil, err
	}

	created, err := s.store.Products().Create(ctx, product)
	if err != nil {
		return nil, storeError(err)
	}

	log.Info().
		Int64("admin_id", actor.ID).
		Str("product_id", created.ID).
		Str("title", created.Title).
		Int("stock", created.Stock).
		Msg("Product created")

	return created, nil
}

// UpdateProduct merges patch into the product and returns the result. The
// product lock is held so stock edits serialize with purchases.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor *model.User, id string, patch model.ProductPatch) (*model.Product, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
	}

	var updated *model.Product
	err := s.locks.WithLock(ctx, s.lockTimeout, []string{lock.ProductKey(id)}, func() error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
			if err := tx.Products().Update(ctx, id, patch); err != nil {
				return notFoundAs(err, ErrProductNotFound)
			}
			p, err := tx.Products().GetByID(ctx, id)
			if err != nil {
				return notFoundAs(err, ErrProductNotFound)
			}
			updated = p
			return nil
		})
	})
	if err != nil {
		return nil, storeError(err)
	}

	log.Info().
		Int64("admin_id", actor.ID).
		Str("product_id", id).
		Int("stock", updated.Stock).
		Msg("Product updated")

	return updated, nil
}

// SetStock replaces the product's stock count.
func (s *CatalogService) SetStock(ctx context.Context, actor *model.User, id string, stock int) (*model.Product, error) {
	return s.UpdateProduct(ctx, actor, id, model.ProductPatch{Stock: &stock})
}

// DeleteProduct removes a product. Existing orders keep their snapshot.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor *model.User, id string) error {
	if actor == nil || !actor.IsAdmin {
		return ErrForbidden
	}

	err := s.locks.WithLock(ctx, s.lockTimeout, []string{lock.ProductKey(id)}, func() error {
		if err := s.store.Products().Delete(ctx, id); err != nil {
			return notFoundAs(err, ErrProductNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Int64("admin_id", actor.ID).
		Str("product_id", id).
		Msg("Product deleted")

	return nil
}

// Seed loads products into an empty catalog. It reports how many were added;
// a catalog that already has products is left alone.
func (s *CatalogService) Seed(ctx context.Context, products []*model.Product) (int, error) {
	added := 0
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		existing, err := tx.Products().List(ctx, repository.ProductFilter{})
		if err != nil {
			return storeError(err)
		}
		if len(existing) > 0 {
			return nil
		}

		// Insert in reverse so the list reads in catalog order, newest first.
		for i := len(products) - 1; i >= 0; i-- {
			if _, err := tx.Products().Create(ctx, products[i]); err != nil {
				return storeError(err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, storeError(err)
	}

	if added > 0 {
		log.Info().Int("count", added).Msg("Catalog seeded")
	}
	return added, nil
}

func validatePrice(price decimal.Decimal) error {
	if err := model.CheckMoney(price, model.PricePrecision); err != nil {
		return fmt.Errorf("%w: price %w", ErrValidation, err)
	}
	return nil
}
