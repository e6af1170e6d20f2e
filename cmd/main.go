package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/walletledger/internal/config"
	"github.com/tinoosan/walletledger/internal/dictionary"
	"github.com/tinoosan/walletledger/internal/fx"
	httpapi "github.com/tinoosan/walletledger/internal/httpapi/v1"
	"github.com/tinoosan/walletledger/internal/ledger"
	"github.com/tinoosan/walletledger/internal/retry"
	"github.com/tinoosan/walletledger/internal/service/notification"
	"github.com/tinoosan/walletledger/internal/storage/memory"
	pgstore "github.com/tinoosan/walletledger/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(slog.Default())
	logger := cfg.Logger()
	slog.SetDefault(logger)

	var store httpapi.Store
	var closeFn func()

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = pg.Close
		if cfg.DevSeed {
			user, w, cats, err := pg.SeedDev(ctx, cfg.BaseCurrency)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", user, w, cats)
				printDevSeedBanner(user, w)
			}
		}
		store = pg
		logger.Info("storage backend: postgres")
	} else {
		// Default to in-memory store with a small dev seed
		mem := memory.New()
		user, w, cats := seedMemory(mem, cfg.BaseCurrency)
		logDevSeed(logger, "memory", user, w, cats)
		printDevSeedBanner(user, w)
		store = mem
		logger.Info("storage backend: memory")
	}

	// Notifications are written after commit on a worker; failures never reach the caller.
	dispatcher := notification.NewDispatcher(store, notification.DispatcherOptions{Timeout: cfg.NotifyTimeout}, logger)

	rates := fx.New(fx.Options{URL: cfg.FXAPIURL, Base: cfg.BaseCurrency, TTL: cfg.FXTTL}, logger)
	var stopCron func()
	if cfg.FXRefreshSpec != "" {
		c, err := rates.Schedule(cfg.FXRefreshSpec)
		if err != nil {
			logger.Warn("exchange rate refresh not scheduled", "err", err)
		} else {
			stopCron = func() { <-c.Stop().Done() }
		}
	}

	policy := retry.Default()
	policy.MaxRetries = cfg.WriterMaxRetries
	api := httpapi.New(store, dispatcher, rates, httpapi.Options{
		Currency:                 cfg.BaseCurrency,
		LowBalanceThresholdMinor: cfg.LowBalanceThresholdMinor,
		Retry:                    policy,
		JWTSecret:                cfg.JWTSecret,
		JWTIssuer:                cfg.JWTIssuer,
		JWTAudience:              cfg.JWTAudience,
		SpecPath:                 "openapi/openapi.yaml",
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("wallet ledger listening", "addr", srv.Addr, "currency", cfg.BaseCurrency)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if stopCron != nil {
		stopCron()
	}
	ctxDrain, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dispatcher.Close(ctxDrain); err != nil {
		logger.Warn("notifications not fully flushed", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

func seedMemory(s *memory.Store, currency string) (ledger.User, ledger.Wallet, []ledger.Category) {
	now := time.Now().UTC()
	user := ledger.User{ID: uuid.New(), Currency: currency}
	s.SeedUser(user)
	w := ledger.Wallet{ID: uuid.New(), UserID: user.ID, Name: "Cash", Kind: ledger.WalletKindCash, InitialBalance: ledger.Amount(currency, 0), CreatedAt: now}
	s.SeedWallet(w)
	var cats []ledger.Category
	for _, def := range dictionary.CategoriesFor(nil) {
		c := ledger.Category{ID: uuid.New(), UserID: user.ID, Name: def.Name, Direction: def.Direction, Icon: def.Icon, CreatedAt: now}
		s.SeedCategory(c)
		cats = append(cats, c)
	}
	return user, w, cats
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, user ledger.User, w ledger.Wallet, cats []ledger.Category) {
	ids := map[string]string{"cash_wallet_id": w.ID.String()}
	for _, c := range cats {
		ids[string(c.Direction)+":"+c.Name] = c.ID.String()
	}
	l.Info("DEV seed ("+backend+")", "user_id", user.ID.String(), "ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(user ledger.User, w ledger.Wallet) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("user_id: %s\n", user.ID.String())
	fmt.Printf("cash_wallet_id: %s\n", w.ID.String())
	fmt.Println("==================================================")
}
