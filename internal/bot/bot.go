// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-storefront/internal/config"
	"telegram-storefront/internal/handler"
	"telegram-storefront/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	accounts *service.AccountService

	// Handlers
	accountHandler *handler.AccountHandler
	shopHandler    *handler.ShopHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config    *config.Config
	Accounts  *service.AccountService
	Catalog   *service.CatalogService
	Purchases *service.PurchaseService
	Wallet    *service.WalletService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	return newBot(deps, tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
}

func newBot(deps *Dependencies, pref tele.Settings) (*Bot, error) {
	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:            teleBot,
		accounts:       deps.Accounts,
		accountHandler: handler.NewAccountHandler(deps.Accounts, deps.Purchases, deps.Config.Bot.WebAppURL),
		shopHandler:    handler.NewShopHandler(deps.Accounts, deps.Catalog, deps.Purchases),
		adminHandler:   handler.NewAdminHandler(deps.Accounts, deps.Catalog, deps.Wallet),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/orders", b.accountHandler.HandleOrders)
	b.bot.Handle("/shop", b.shopHandler.HandleShop)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.accounts))
	adminGroup.Handle("/admin_deposit", b.adminHandler.HandleAdminDeposit)
	adminGroup.Handle("/admin_stock", b.adminHandler.HandleAdminStock)
	adminGroup.Handle("/admin_grant", b.adminHandler.HandleAdminGrant)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")

	if strings.HasPrefix(data, "shop_") {
		return b.shopHandler.HandleShopCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unhandled callback")
	return c.Respond()
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
