package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// Direction fixes the sign a category's transactions contribute to a wallet balance.
type Direction string

const (
	// DirectionIncome adds to the wallet balance.
	DirectionIncome Direction = "income"
	// DirectionExpense subtracts from the wallet balance and is subject to the non-negative floor.
	DirectionExpense Direction = "expense"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool { return d == DirectionIncome || d == DirectionExpense }

// WalletKind is informational only; it never changes ledger arithmetic.
type WalletKind string

const (
	WalletKindCash    WalletKind = "cash"
	WalletKindBank    WalletKind = "bank"
	WalletKindEWallet WalletKind = "e_wallet"
)

// Valid reports whether k is a known wallet kind.
func (k WalletKind) Valid() bool {
	switch k {
	case WalletKindCash, WalletKindBank, WalletKindEWallet:
		return true
	}
	return false
}

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityAlert   Severity = "alert"
)

// Normalize maps unknown severities to info.
func (s Severity) Normalize() Severity {
	switch s {
	case SeveritySuccess, SeverityWarning, SeverityAlert:
		return s
	}
	return SeverityInfo
}

// User captures the owner of ledger data.
type User struct {
	ID       uuid.UUID
	Email    *string
	Currency string
}

// Wallet holds money for one user. Its balance is never stored; see Derive.
type Wallet struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Kind   WalletKind
	// InitialBalance is the baseline set at creation, changed only by explicit adjustments.
	InitialBalance money.Amount
	CreatedAt      time.Time
}

// Category names a kind of income or expense. Direction is fixed at creation.
type Category struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Direction Direction
	Icon      string
	CreatedAt time.Time
}

// PromoType enumerates the discount shapes a purchase can be annotated with.
type PromoType string

const (
	PromoPercent  PromoType = "percent"
	PromoFixed    PromoType = "fixed"
	PromoBuyXGetY PromoType = "buy_x_get_y"
)

// Promo is presentational; the stored Amount is already the paid total.
type Promo struct {
	Type  PromoType `json:"type"`
	Value int64     `json:"value,omitempty"`
	BuyX  int       `json:"buy_x,omitempty"`
	GetY  int       `json:"get_y,omitempty"`
}

// Transaction is an immutable money event against a wallet.
type Transaction struct {
	ID     uuid.UUID
	UserID uuid.UUID
	// WalletID is nil once the wallet has been deleted; history is kept.
	WalletID   *uuid.UUID
	CategoryID uuid.UUID
	// Direction is resolved from the category on read; it is not a stored sign.
	Direction Direction
	// Amount is always positive.
	Amount      money.Amount
	Date        time.Time
	CreatedAt   time.Time
	ProductName string
	Note        string
	Quantity    int
	// UnitPriceMinor is the optional per-item price in minor units.
	UnitPriceMinor *int64
	Promo          *Promo
	// ClientRef is the caller-supplied idempotency key, if any.
	ClientRef string
}

// AmountMinor returns the amount in minor units.
func (t Transaction) AmountMinor() int64 { return Minor(t.Amount) }

// Posting projects the transaction onto its balance contribution.
func (t Transaction) Posting() Posting {
	return Posting{Direction: t.Direction, AmountMinor: t.AmountMinor()}
}

// InWallet reports whether t is attached to walletID.
func (t Transaction) InWallet(walletID uuid.UUID) bool {
	return t.WalletID != nil && *t.WalletID == walletID
}

// Notification is a user-facing record created as a side effect of ledger writes.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Message   string
	Severity  Severity
	Read      bool
	CreatedAt time.Time
}
