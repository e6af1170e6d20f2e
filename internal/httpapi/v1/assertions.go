package v1

import (
    "github.com/tinoosan/walletledger/internal/fx"
    "github.com/tinoosan/walletledger/internal/storage/memory"
    "github.com/tinoosan/walletledger/internal/storage/postgres"
)

// Compile-time interface assertions for the stores against the API interfaces.
var (
    _ Store        = (*memory.Store)(nil)
    _ Store        = (*postgres.Store)(nil)
    _ ReadyChecker = (*memory.Store)(nil)
    _ ReadyChecker = (*postgres.Store)(nil)
    _ RateSource   = (*fx.Rates)(nil)
)
