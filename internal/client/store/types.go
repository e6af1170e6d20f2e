package store

import (
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/ledger"
)

// Version is the persisted snapshot format. A cache with another version is ignored.
const Version = 1

// Wallet is the client's copy of a server wallet. Balances are always derived locally.
type Wallet struct {
    ID                  uuid.UUID         `json:"id"`
    Name                string            `json:"name"`
    Kind                ledger.WalletKind `json:"kind"`
    Currency            string            `json:"currency"`
    InitialBalanceMinor int64             `json:"initial_balance_minor"`
    CreatedAt           time.Time         `json:"created_at"`
}

type Category struct {
    ID        uuid.UUID        `json:"id"`
    Name      string           `json:"name"`
    Direction ledger.Direction `json:"direction"`
    Icon      string           `json:"icon"`
    CreatedAt time.Time        `json:"created_at"`
}

// Transaction is a confirmed server transaction or, with Pending set, a local
// placeholder for a queued submission. Placeholders carry LocalID and no ID.
// Unresolved marks a placeholder whose category is not in the cache; its
// direction is unknown until a refresh brings the category in.
type Transaction struct {
    ID             uuid.UUID        `json:"id"`
    LocalID        string           `json:"local_id,omitempty"`
    Pending        bool             `json:"pending,omitempty"`
    Unresolved     bool             `json:"unresolved,omitempty"`
    WalletID       *uuid.UUID       `json:"wallet_id"`
    CategoryID     uuid.UUID        `json:"category_id"`
    Direction      ledger.Direction `json:"direction"`
    AmountMinor    int64            `json:"amount_minor"`
    Currency       string           `json:"currency"`
    Date           time.Time        `json:"date"`
    CreatedAt      time.Time        `json:"created_at"`
    ProductName    string           `json:"product_name,omitempty"`
    Note           string           `json:"note,omitempty"`
    Quantity       int              `json:"quantity"`
    UnitPriceMinor *int64           `json:"unit_price_minor,omitempty"`
    Promo          *ledger.Promo    `json:"promo,omitempty"`
    ClientRef      string           `json:"client_ref,omitempty"`
}

// Posting projects t onto its balance contribution.
func (t Transaction) Posting() ledger.Posting {
    return ledger.Posting{Direction: t.Direction, AmountMinor: t.AmountMinor}
}

type Notification struct {
    ID        uuid.UUID       `json:"id"`
    Title     string          `json:"title"`
    Message   string          `json:"message"`
    Severity  ledger.Severity `json:"severity"`
    Read      bool            `json:"read"`
    CreatedAt time.Time       `json:"created_at"`
}

// Snapshot is the last server-confirmed state. Its JSON shape is the
// /v1/bootstrap response plus the cache header fields.
type Snapshot struct {
    Version       int            `json:"version"`
    UserID        uuid.UUID      `json:"user_id"`
    Currency      string         `json:"currency"`
    Wallets       []Wallet       `json:"wallets"`
    Categories    []Category     `json:"categories"`
    Transactions  []Transaction  `json:"transactions"`
    Notifications []Notification `json:"notifications"`
    UpdatedAt     time.Time      `json:"updated_at"`
}
