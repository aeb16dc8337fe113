package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"telegram-storefront/internal/service"
	"telegram-storefront/internal/shop"
)

// recentOrders is how many orders /orders shows.
const recentOrders = 10

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accounts  *service.AccountService
	purchases *service.PurchaseService
	webAppURL string
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, purchases *service.PurchaseService, webAppURL string) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		purchases: purchases,
		webAppURL: webAppURL,
	}
}

// HandleStart handles the /start command.
// Registers the sender and offers the Mini App button.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, created, err := h.accounts.EnsureUser(context.Background(), IdentityOf(sender))
	if err != nil {
		return c.Reply(errorText(err))
	}

	greeting := "👋 Welcome back"
	if created {
		greeting = "🎉 Welcome"
	}
	msg := fmt.Sprintf(
		"%s, %s!\n\n"+
			"💰 Balance: %s\n\n"+
			"Commands:\n"+
			"/shop - browse the store\n"+
			"/balance - show your balance\n"+
			"/orders - your recent orders",
		greeting, user.Username, shop.FormatPrice(user.Balance),
	)

	if markup := shop.BuildWebAppPanel(h.webAppURL); markup != nil {
		return c.Send(msg, markup)
	}
	return c.Send(msg)
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, _, err := h.accounts.EnsureUser(context.Background(), IdentityOf(sender))
	if err != nil {
		return c.Reply(errorText(err))
	}

	return c.Reply(fmt.Sprintf("💰 Balance: %s", shop.FormatPrice(user.Balance)))
}

// HandleOrders handles the /orders command.
func (h *AccountHandler) HandleOrders(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	orders, err := h.purchases.Orders(context.Background(), sender.ID, recentOrders)
	if err != nil {
		return c.Reply(errorText(err))
	}

	return c.Reply(shop.FormatOrders(orders))
}
