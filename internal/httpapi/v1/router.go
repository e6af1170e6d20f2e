// Package v1 wires the HTTP surface of the wallet ledger.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
    "log/slog"
    "net/http"
    "sync"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"
    httpSwagger "github.com/swaggo/http-swagger"

    "github.com/tinoosan/walletledger/internal/retry"
    "github.com/tinoosan/walletledger/internal/service/category"
    "github.com/tinoosan/walletledger/internal/service/notification"
    "github.com/tinoosan/walletledger/internal/service/transaction"
    "github.com/tinoosan/walletledger/internal/service/wallet"
)

// Options carries the settings handlers need beyond their dependencies.
type Options struct {
    // Currency is the base currency for new users and wallets.
    Currency                 string
    LowBalanceThresholdMinor int64
    Retry                    retry.Policy
    JWTSecret                string
    JWTIssuer                string
    JWTAudience              string
    // SpecPath is the OpenAPI file served at /v1/openapi.yaml.
    SpecPath string
}

// Server wires handlers and middleware using Chi.
type Server struct {
    store     Store
    txSvc     transaction.Service
    walletSvc wallet.Service
    catSvc    category.Service
    noteSvc   notification.Service
    rates     RateSource
    opts      Options
    log       *slog.Logger
    rt        *chi.Mux

    // seen caches users already ensured in the store.
    seen sync.Map
}

// New constructs the HTTP server with routes and middleware. notify receives
// post-commit notifications; rates may be nil when exchange rates are disabled.
func New(store Store, notify transaction.Notifier, rates RateSource, opts Options, logger *slog.Logger) *Server {
    if logger == nil { logger = slog.Default() }
    if opts.Currency == "" { opts.Currency = "IDR" }
    if opts.SpecPath == "" { opts.SpecPath = "openapi/openapi.yaml" }
    r := chi.NewRouter()
    r.Use(chimw.RequestID)
    r.Use(requestLogger(logger))
    r.Use(recoverer(logger))
    r.Use(metricsMiddleware)

    s := &Server{
        store: store,
        txSvc: transaction.New(store, store, notify, transaction.Options{
            LowBalanceThresholdMinor: opts.LowBalanceThresholdMinor,
            Retry:                    opts.Retry,
        }, logger),
        walletSvc: wallet.New(store, store, opts.Currency),
        catSvc:    category.New(store, store),
        noteSvc:   notification.New(store, store),
        rates:     rates,
        opts:      opts,
        log:       logger,
        rt:        r,
    }
    s.routes()
    return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
    // Unauthenticated
    s.rt.Get("/healthz", s.healthz)
    s.rt.Get("/readyz", s.readyz)
    s.rt.Handle("/metrics", metricsHandler())
    s.rt.Get("/v1/openapi.yaml", s.openapiSpec)
    s.rt.Get("/v1/docs/*", httpSwagger.Handler(httpSwagger.URL("/v1/openapi.yaml")))
    s.rt.Get("/v1/dictionary/categories", s.getCategoriesDictionary)
    s.rt.Get("/v1/exchange-rates", s.getExchangeRates)

    s.rt.Group(func(r chi.Router) {
        r.Use(s.authenticate)
        r.Get("/v1/bootstrap", s.bootstrap)
        r.Put("/v1/user/preferences", s.putPreferences)
        // Transactions
        r.With(s.validatePostTransaction).Post("/v1/transactions", s.postTransaction)
        r.With(s.validateListTransactions).Get("/v1/transactions", s.listTransactions)
        r.Get("/v1/transactions/{id}", s.getTransaction)
        // Wallets
        r.With(s.validatePostWallet).Post("/v1/wallets", s.postWallet)
        r.Get("/v1/wallets", s.listWallets)
        r.Get("/v1/wallets/{id}", s.getWallet)
        r.Get("/v1/wallets/{id}/balance", s.getWalletBalance)
        r.Patch("/v1/wallets/{id}", s.patchWallet)
        r.Delete("/v1/wallets/{id}", s.deleteWallet)
        // Categories
        r.With(s.validatePostCategory).Post("/v1/categories", s.postCategory)
        r.Get("/v1/categories", s.listCategories)
        r.Patch("/v1/categories/{id}", s.patchCategory)
        r.Delete("/v1/categories/{id}", s.deleteCategory)
        // Notifications
        r.Get("/v1/notifications", s.listNotifications)
        r.Put("/v1/notifications/read", s.markAllNotificationsRead)
        r.Put("/v1/notifications/{id}/read", s.markNotificationRead)
    })
}
