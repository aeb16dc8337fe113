// Package httpapi serves the Telegram Mini App JSON API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"telegram-storefront/internal/service"
)

const serviceName = "telegram-storefront"

// Dependencies holds everything the API needs.
type Dependencies struct {
	Accounts  *service.AccountService
	Catalog   *service.CatalogService
	Purchases *service.PurchaseService
	Wallet    *service.WalletService

	BotToken       string
	InitDataMaxAge time.Duration

	// Health reports whether the store is reachable. Nil means always healthy.
	Health func(ctx context.Context) error
}

// Server is the Mini App HTTP server.
type Server struct {
	accounts  *service.AccountService
	catalog   *service.CatalogService
	purchases *service.PurchaseService
	wallet    *service.WalletService

	botToken       string
	initDataMaxAge time.Duration
	health         func(ctx context.Context) error
	now            func() time.Time

	router *gin.Engine
	srv    *http.Server
}

// NewServer creates the server and registers every route.
func NewServer(addr string, deps Dependencies) *Server {
	s := &Server{
		accounts:       deps.Accounts,
		catalog:        deps.Catalog,
		purchases:      deps.Purchases,
		wallet:         deps.Wallet,
		botToken:       deps.BotToken,
		initDataMaxAge: deps.InitDataMaxAge,
		health:         deps.Health,
		now:            time.Now,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(LoggingMiddleware())
	s.router = router
	s.registerRoutes()

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api", s.AuthMiddleware())
	api.GET("/products", s.handleListProducts)
	api.GET("/products/:id", s.handleGetProduct)
	api.GET("/me", s.handleMe)
	api.POST("/purchases", s.handlePurchase)
	api.GET("/orders", s.handleOrders)
	api.POST("/wallet/deposit", s.handleDeposit)
	api.GET("/wallet/transactions", s.handleTransactions)

	admin := api.Group("/admin", requireAdmin())
	admin.GET("/products", s.handleAdminListProducts)
	admin.POST("/products", s.handleAdminCreateProduct)
	admin.PATCH("/products/:id", s.handleAdminUpdateProduct)
	admin.DELETE("/products/:id", s.handleAdminDeleteProduct)
}

// Start serves until Shutdown is called. It blocks.
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("HTTP API listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping HTTP API...")
	return s.srv.Shutdown(ctx)
}
