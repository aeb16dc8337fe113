package handler

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-storefront/internal/model"
	"telegram-storefront/internal/service"
	"telegram-storefront/internal/shop"
)

// ShopHandler drives the inline-keyboard storefront.
type ShopHandler struct {
	accounts  *service.AccountService
	catalog   *service.CatalogService
	purchases *service.PurchaseService
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(accounts *service.AccountService, catalog *service.CatalogService, purchases *service.PurchaseService) *ShopHandler {
	return &ShopHandler{
		accounts:  accounts,
		catalog:   catalog,
		purchases: purchases,
	}
}

// HandleShop handles /shop and shows the category panel.
func (h *ShopHandler) HandleShop(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, _, err := h.accounts.EnsureUser(context.Background(), IdentityOf(sender))
	if err != nil {
		return c.Reply(errorText(err))
	}

	return c.Send(shop.FormatShopMessage(user.Balance), shop.BuildCategoryPanel())
}

// HandleShopCallback handles shop button callbacks
func (h *ShopHandler) HandleShopCallback(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if c.Callback() == nil || sender == nil {
		return nil
	}

	data := callbackData(c)
	switch {
	case data == shop.CallbackShopHome:
		user, _, err := h.accounts.EnsureUser(ctx, IdentityOf(sender))
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err), ShowAlert: true})
		}
		return c.Edit(shop.FormatShopMessage(user.Balance), shop.BuildCategoryPanel())

	case strings.HasPrefix(data, shop.CallbackShopCategory):
		category := model.Category(strings.TrimPrefix(data, shop.CallbackShopCategory))
		products, err := h.catalog.Query(ctx, category, "")
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err), ShowAlert: true})
		}
		return c.Edit(shop.FormatCategoryMessage(category, len(products)), shop.BuildProductPanel(products))

	case strings.HasPrefix(data, shop.CallbackShopItem):
		product, err := h.catalog.Get(ctx, strings.TrimPrefix(data, shop.CallbackShopItem))
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err)})
		}
		user, _, err := h.accounts.EnsureUser(ctx, IdentityOf(sender))
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err), ShowAlert: true})
		}
		return c.Edit(shop.FormatProductDetail(product, user.Balance), shop.BuildConfirmPanel(product))

	case strings.HasPrefix(data, shop.CallbackShopBuy):
		return h.buy(c, sender, strings.TrimPrefix(data, shop.CallbackShopBuy))
	}

	return nil
}

// buy completes a purchase and sends the delivery data as a separate message
// so it survives later panel edits.
func (h *ShopHandler) buy(c tele.Context, sender *tele.User, productID string) error {
	ctx := context.Background()

	if _, _, err := h.accounts.EnsureUser(ctx, IdentityOf(sender)); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: errorText(err), ShowAlert: true})
	}

	order, err := h.purchases.Purchase(ctx, sender.ID, productID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: errorText(err), ShowAlert: true})
	}

	_ = c.Respond(&tele.CallbackResponse{Text: "✅ Purchase complete"})

	if err := c.Send(shop.FormatDelivery(order)); err != nil {
		log.Error().
			Err(err).
			Int64("user_id", sender.ID).
			Str("order_id", order.ID).
			Msg("Failed to send delivery message")
	}

	user, err := h.accounts.GetUser(ctx, sender.ID)
	if err != nil {
		return nil
	}
	return c.Edit(shop.FormatShopMessage(user.Balance), shop.BuildCategoryPanel())
}
