package v1

import (
    "context"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/fx"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/category"
    "github.com/tinoosan/walletledger/internal/service/notification"
    "github.com/tinoosan/walletledger/internal/service/transaction"
    "github.com/tinoosan/walletledger/internal/service/wallet"
)

// UserStore provisions users on first sight.
type UserStore interface {
    // EnsureUser inserts u if it does not exist and reports whether it was created.
    EnsureUser(ctx context.Context, u ledger.User) (bool, error)
    GetUser(ctx context.Context, userID uuid.UUID) (ledger.User, error)
    // SetUserCurrency stores the display currency, creating the user if needed.
    SetUserCurrency(ctx context.Context, userID uuid.UUID, curr string) (ledger.User, error)
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
    Ready(ctx context.Context) error
}

// RateSource supplies exchange rates for display conversion.
type RateSource interface {
    Get(ctx context.Context) (fx.Table, error)
}

// Store composes everything the API reads and writes.
// It is satisfied by both the in-memory and the Postgres store.
type Store interface {
    UserStore
    transaction.Store
    transaction.Repo
    wallet.Repo
    wallet.Writer
    category.Repo
    category.Writer
    notification.Repo
    notification.Writer
}
