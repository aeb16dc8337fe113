package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"telegram-storefront/internal/model"
	"telegram-storefront/internal/pkg/lock"
	"telegram-storefront/internal/repository"
)

var tracer = otel.Tracer("telegram-storefront/internal/service")

// PurchaseService turns a buyer's balance into a delivered order.
type PurchaseService struct {
	store       repository.Store
	locks       *lock.KeyLock
	lockTimeout time.Duration
}

// NewPurchaseService creates a new PurchaseService instance.
func NewPurchaseService(store repository.Store, locks *lock.KeyLock, lockTimeout time.Duration) *PurchaseService {
	return &PurchaseService{
		store:       store,
		locks:       locks,
		lockTimeout: lockTimeout,
	}
}

// PurchaseDescription is the ledger description for buying a product.
func PurchaseDescription(title string) string {
	return "Bought " + title
}

// Purchase buys one unit of the product for the user.
//
// Checks run in order: product exists, product in stock, buyer exists, balance
// covers the price. The first failing check is returned and nothing changes.
// Otherwise stock and balance are decremented and the order and its ledger
// entry are written in a single unit of work.
func (s *PurchaseService) Purchase(ctx context.Context, userID int64, productID string) (_ *model.Order, err error) {
	ctx, span := tracer.Start(ctx, "PurchaseService.Purchase", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("product.id", productID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var order *model.Order
	keys := []string{lock.UserKey(userID), lock.ProductKey(productID)}
	err = s.locks.WithLock(ctx, s.lockTimeout, keys, func() error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
			product, err := tx.Products().GetForUpdate(ctx, productID)
			if err != nil {
				return notFoundAs(err, ErrProductNotFound)
			}
			if product.Stock <= 0 {
				return ErrOutOfStock
			}

			user, err := tx.Users().GetForUpdate(ctx, userID)
			if err != nil {
				return notFoundAs(err, ErrUserNotFound)
			}
			if user.Balance.LessThan(product.Price) {
				return ErrInsufficientFunds
			}

			stock := product.Stock - 1
			if err := tx.Products().Update(ctx, productID, model.ProductPatch{Stock: &stock}); err != nil {
				return storeError(err)
			}

			balance := user.Balance.Sub(product.Price)
			if err := tx.Users().Update(ctx, userID, model.UserPatch{Balance: &balance}); err != nil {
				return storeError(err)
			}

			order, err = tx.Orders().Create(ctx, &model.Order{
				UserID:       userID,
				ProductID:    product.ID,
				ProductTitle: product.Title,
				Price:        product.Price,
				Status:       model.OrderStatusCompleted,
				DeliveryData: product.AutoDeliveryData,
			})
			if err != nil {
				return storeError(err)
			}

			// A free product moves no money, so it leaves no ledger entry.
			if product.Price.IsZero() {
				return nil
			}
			_, err = tx.Transactions().Create(ctx, &model.Transaction{
				UserID:      userID,
				Amount:      product.Price.Neg(),
				Type:        model.TxTypePurchase,
				Description: PurchaseDescription(product.Title),
			})
			return storeError(err)
		})
	})
	if err != nil {
		return nil, storeError(err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	log.Info().
		Int64("user_id", userID).
		Str("product_id", productID).
		Str("order_id", order.ID).
		Str("price", order.Price.StringFixed(2)).
		Msg("Product purchased")

	return order, nil
}

// Orders returns the user's orders, newest first. limit <= 0 returns all.
func (s *PurchaseService) Orders(ctx context.Context, userID int64, limit int) ([]*model.Order, error) {
	orders, err := s.store.Orders().List(ctx, repository.OrderFilter{UserID: userID, Limit: limit})
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}
