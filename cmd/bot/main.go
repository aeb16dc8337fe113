// Package main is the entry point for the Telegram storefront: the bot and
// the Mini App HTTP API share one store and one set of services.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-storefront/internal/bot"
	"telegram-storefront/internal/config"
	"telegram-storefront/internal/httpapi"
	"telegram-storefront/internal/pkg/db"
	"telegram-storefront/internal/pkg/lock"
	"telegram-storefront/internal/pkg/tracing"
	"telegram-storefront/internal/repository"
	"telegram-storefront/internal/service"
	"telegram-storefront/internal/shop"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Str("store", cfg.Store.Driver).Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	store, health, closeStore := openStore(ctx, cfg)
	defer closeStore()

	initialBalance, _ := cfg.InitialBalance()
	maxDeposit, _ := cfg.MaxDeposit()

	// Initialize services
	keyLock := lock.NewKeyLock()
	accountService := service.NewAccountService(store, initialBalance, cfg.Admin.IDs)
	catalogService := service.NewCatalogService(store, keyLock, cfg.Lock.Timeout)
	purchaseService := service.NewPurchaseService(store, keyLock, cfg.Lock.Timeout)
	walletService := service.NewWalletService(store, keyLock, cfg.Lock.Timeout, maxDeposit)

	if cfg.Store.Seed {
		if _, err := catalogService.Seed(ctx, shop.DefaultCatalog()); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed catalog")
		}
	}

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:    cfg,
		Accounts:  accountService,
		Catalog:   catalogService,
		Purchases: purchaseService,
		Wallet:    walletService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	apiServer := httpapi.NewServer(cfg.HTTP.Addr, httpapi.Dependencies{
		Accounts:       accountService,
		Catalog:        catalogService,
		Purchases:      purchaseService,
		Wallet:         walletService,
		BotToken:       cfg.Bot.Token,
		InitDataMaxAge: cfg.HTTP.InitDataMaxAge,
		Health:         health,
	})

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP API stopped unexpectedly")
			sigChan <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP API shutdown failed")
	}
	telegramBot.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracing shutdown failed")
	}
	log.Info().Msg("Storefront stopped gracefully")
}

// openStore opens the configured store. It returns the store, a health probe
// for the HTTP API, and a close function.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(context.Context) error, func()) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		dbPool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}

		if err := db.Migrate(ctx, dbPool); err != nil {
			dbPool.Close()
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}

		return repository.NewPostgresStore(dbPool.Pool), dbPool.HealthCheck, dbPool.Close

	default:
		if cfg.Store.SnapshotPath == "" {
			log.Warn().Msg("Memory store has no snapshot path, data is lost on restart")
			return repository.NewMemoryStore(), nil, func() {}
		}

		store, err := repository.OpenMemoryStore(cfg.Store.SnapshotPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open memory store")
		}
		return store, nil, func() {}
	}
}
