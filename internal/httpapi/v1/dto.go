package v1

import (
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/wallet"
)

type postTransactionRequest struct {
    WalletID       uuid.UUID     `json:"wallet_id"`
    CategoryID     uuid.UUID     `json:"category_id"`
    AmountMinor    int64         `json:"amount_minor"`
    // Date is RFC 3339 or YYYY-MM-DD; empty means now.
    Date           string        `json:"date,omitempty"`
    ProductName    string        `json:"product_name,omitempty"`
    Note           string        `json:"note,omitempty"`
    Quantity       int           `json:"quantity,omitempty"`
    UnitPriceMinor *int64        `json:"unit_price_minor,omitempty"`
    Promo          *ledger.Promo `json:"promo,omitempty"`
    ClientRef      string        `json:"client_ref,omitempty"`
}

type transactionResponse struct {
    ID             uuid.UUID        `json:"id"`
    WalletID       *uuid.UUID       `json:"wallet_id"`
    CategoryID     uuid.UUID        `json:"category_id"`
    Direction      ledger.Direction `json:"direction"`
    AmountMinor    int64            `json:"amount_minor"`
    Amount         string           `json:"amount"`
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

type balanceResponse struct {
    WalletID     *uuid.UUID `json:"wallet_id,omitempty"`
    BalanceMinor int64      `json:"balance_minor"`
    IncomeMinor  int64      `json:"income_minor"`
    ExpenseMinor int64      `json:"expense_minor"`
    Balance      string     `json:"balance"`
    Currency     string     `json:"currency"`
}

type submitResponse struct {
    TransactionID uuid.UUID           `json:"transaction_id"`
    Transaction   transactionResponse `json:"transaction"`
    Balance       balanceResponse     `json:"balance"`
    Replayed      bool                `json:"replayed,omitempty"`
}

type postWalletRequest struct {
    Name                string            `json:"name"`
    Kind                ledger.WalletKind `json:"kind,omitempty"`
    InitialBalanceMinor int64             `json:"initial_balance_minor"`
}

type patchWalletRequest struct {
    Name                   *string            `json:"name"`
    Kind                   *ledger.WalletKind `json:"kind"`
    BalanceAdjustmentMinor int64              `json:"balance_adjustment_minor"`
}

type walletResponse struct {
    ID                  uuid.UUID         `json:"id"`
    Name                string            `json:"name"`
    Kind                ledger.WalletKind `json:"kind"`
    Currency            string            `json:"currency"`
    InitialBalanceMinor int64             `json:"initial_balance_minor"`
    BalanceMinor        int64             `json:"balance_minor"`
    IncomeMinor         int64             `json:"income_minor"`
    ExpenseMinor        int64             `json:"expense_minor"`
    Balance             string            `json:"balance"`
    CreatedAt           time.Time         `json:"created_at"`
}

type postCategoryRequest struct {
    Name      string           `json:"name"`
    Direction ledger.Direction `json:"direction"`
    Icon      string           `json:"icon,omitempty"`
}

type patchCategoryRequest struct {
    Name      *string           `json:"name"`
    Icon      *string           `json:"icon"`
    Direction *ledger.Direction `json:"direction"`
}

type categoryResponse struct {
    ID        uuid.UUID        `json:"id"`
    Name      string           `json:"name"`
    Direction ledger.Direction `json:"direction"`
    Icon      string           `json:"icon"`
    CreatedAt time.Time        `json:"created_at"`
}

type notificationResponse struct {
    ID        uuid.UUID       `json:"id"`
    Title     string          `json:"title"`
    Message   string          `json:"message"`
    Severity  ledger.Severity `json:"severity"`
    Read      bool            `json:"read"`
    CreatedAt time.Time       `json:"created_at"`
}

type bootstrapResponse struct {
    UserID        uuid.UUID              `json:"user_id"`
    Currency      string                 `json:"currency"`
    Wallets       []walletResponse       `json:"wallets"`
    Categories    []categoryResponse     `json:"categories"`
    Transactions  []transactionResponse  `json:"transactions"`
    Notifications []notificationResponse `json:"notifications"`
}

// itemsResponse is the list envelope used by every collection endpoint.
type itemsResponse[T any] struct {
    Items []T `json:"items"`
}

// preferencesRequest is the body of PUT /v1/user/preferences.
type preferencesRequest struct {
    Currency string `json:"currency"`
}

type preferencesResponse struct {
    UserID   uuid.UUID `json:"user_id"`
    Currency string    `json:"currency"`
}

// listTransactionsQuery holds validated query params for GET /transactions.
type listTransactionsQuery struct {
    WalletID *uuid.UUID
    From     *time.Time
    To       *time.Time
    Limit    int
    // Page is 1-based; zero means the caller did not ask for a page.
    Page int
}

// defaultPageSize applies when page is given without limit.
const defaultPageSize = 20

// transactionPageResponse is the list envelope for GET /transactions. Total
// counts every match of the filter, not just this page.
type transactionPageResponse struct {
    Items []transactionResponse `json:"items"`
    Page  int                   `json:"page"`
    Limit int                   `json:"limit"`
    Total int                   `json:"total"`
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
    curr := t.Amount.Curr().Code()
    return transactionResponse{
        ID:             t.ID,
        WalletID:       t.WalletID,
        CategoryID:     t.CategoryID,
        Direction:      t.Direction,
        AmountMinor:    t.AmountMinor(),
        Amount:         ledger.Format(curr, t.AmountMinor()),
        Currency:       curr,
        Date:           t.Date,
        CreatedAt:      t.CreatedAt,
        ProductName:    t.ProductName,
        Note:           t.Note,
        Quantity:       t.Quantity,
        UnitPriceMinor: t.UnitPriceMinor,
        Promo:          t.Promo,
        ClientRef:      t.ClientRef,
    }
}

func toTransactionResponses(ts []ledger.Transaction) []transactionResponse {
    out := make([]transactionResponse, 0, len(ts))
    for _, t := range ts { out = append(out, toTransactionResponse(t)) }
    return out
}

func toBalanceResponse(walletID *uuid.UUID, curr string, t ledger.Totals) balanceResponse {
    return balanceResponse{
        WalletID:     walletID,
        BalanceMinor: t.Balance,
        IncomeMinor:  t.Income,
        ExpenseMinor: t.Expense,
        Balance:      ledger.Format(curr, t.Balance),
        Currency:     curr,
    }
}

func toWalletResponse(w wallet.WithTotals) walletResponse {
    curr := w.InitialBalance.Curr().Code()
    return walletResponse{
        ID:                  w.ID,
        Name:                w.Name,
        Kind:                w.Kind,
        Currency:            curr,
        InitialBalanceMinor: ledger.Minor(w.InitialBalance),
        BalanceMinor:        w.Totals.Balance,
        IncomeMinor:         w.Totals.Income,
        ExpenseMinor:        w.Totals.Expense,
        Balance:             ledger.Format(curr, w.Totals.Balance),
        CreatedAt:           w.CreatedAt,
    }
}

func toWalletResponses(ws []wallet.WithTotals) []walletResponse {
    out := make([]walletResponse, 0, len(ws))
    for _, w := range ws { out = append(out, toWalletResponse(w)) }
    return out
}

func toCategoryResponses(cs []ledger.Category) []categoryResponse {
    out := make([]categoryResponse, 0, len(cs))
    for _, c := range cs {
        out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Direction: c.Direction, Icon: c.Icon, CreatedAt: c.CreatedAt})
    }
    return out
}

func toNotificationResponses(ns []ledger.Notification) []notificationResponse {
    out := make([]notificationResponse, 0, len(ns))
    for _, n := range ns {
        out = append(out, notificationResponse{ID: n.ID, Title: n.Title, Message: n.Message, Severity: n.Severity, Read: n.Read, CreatedAt: n.CreatedAt})
    }
    return out
}
