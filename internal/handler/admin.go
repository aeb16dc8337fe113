package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"telegram-storefront/internal/model"
	"telegram-storefront/internal/service"
	"telegram-storefront/internal/shop"
)

// ActorKey is the tele.Context key under which the admin middleware stores
// the verified *model.User.
const ActorKey = "actor"

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	accounts *service.AccountService
	catalog  *service.CatalogService
	wallet   *service.WalletService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts *service.AccountService, catalog *service.CatalogService, wallet *service.WalletService) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		catalog:  catalog,
		wallet:   wallet,
	}
}

// HandleAdminDeposit handles /admin_deposit <user_id> <amount>.
func (h *AdminHandler) HandleAdminDeposit(c tele.Context) error {
	actor := actorOf(c)
	if actor == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /admin_deposit <user_id> <amount>\nExample: /admin_deposit 123456789 25.00")
	}
	targetID, err := parseUserID(args[0])
	if err != nil {
		return c.Reply(err.Error())
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return c.Reply("❌ Amount must be a number, e.g. 25.00")
	}

	entry, err := h.wallet.Deposit(context.Background(), targetID, amount)
	if err != nil {
		return c.Reply(errorText(err))
	}

	log.Info().
		Int64("admin_id", actor.ID).
		Int64("target_id", targetID).
		Str("amount", amount.StringFixed(2)).
		Str("operation", "admin_deposit").
		Msg("Admin operation executed")

	user, err := h.accounts.GetUser(context.Background(), targetID)
	if err != nil {
		return c.Reply(errorText(err))
	}

	return c.Reply(fmt.Sprintf(
		"✅ Done\n\n"+
			"👤 User: %s (ID: %d)\n"+
			"➕ Added: %s\n"+
			"💰 Balance: %s",
		user.Username, targetID, shop.FormatPrice(entry.Amount), shop.FormatPrice(user.Balance),
	))
}

// HandleAdminStock handles /admin_stock <product_id> <stock>.
func (h *AdminHandler) HandleAdminStock(c tele.Context) error {
	actor := actorOf(c)
	if actor == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /admin_stock <product_id> <stock>\nExample: /admin_stock 1 10")
	}
	stock, err := strconv.Atoi(args[1])
	if err != nil || stock < 0 {
		return c.Reply("❌ Stock must be a whole number, 0 or more")
	}

	product, err := h.catalog.SetStock(context.Background(), actor, args[0], stock)
	if err != nil {
		return c.Reply(errorText(err))
	}

	return c.Reply(fmt.Sprintf("✅ %s now has %d in stock", product.Title, product.Stock))
}

// HandleAdminGrant handles /admin_grant <user_id>.
func (h *AdminHandler) HandleAdminGrant(c tele.Context) error {
	actor := actorOf(c)
	if actor == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("Usage: /admin_grant <user_id>")
	}
	targetID, err := parseUserID(args[0])
	if err != nil {
		return c.Reply(err.Error())
	}

	user, err := h.accounts.SetAdmin(context.Background(), actor, targetID, true)
	if err != nil {
		return c.Reply(errorText(err))
	}

	return c.Reply(fmt.Sprintf("✅ %s (ID: %d) is now an admin", user.Username, user.ID))
}

func actorOf(c tele.Context) *model.User {
	actor, _ := c.Get(ActorKey).(*model.User)
	return actor
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("❌ User ID must be a positive number")
	}
	return id, nil
}
