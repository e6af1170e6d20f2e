package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/walletledger/internal/errs"
)

// MaxClientRefLen bounds idempotency keys.
const MaxClientRefLen = 80

// SubmitRequest is the typed input of the Transaction Writer. It is the same
// shape the client queues while offline.
type SubmitRequest struct {
	WalletID       uuid.UUID `json:"wallet_id"`
	CategoryID     uuid.UUID `json:"category_id"`
	AmountMinor    int64     `json:"amount_minor"`
	Date           time.Time `json:"date"`
	ProductName    string    `json:"product_name,omitempty"`
	Note           string    `json:"note,omitempty"`
	Quantity       int       `json:"quantity,omitempty"`
	UnitPriceMinor *int64    `json:"unit_price_minor,omitempty"`
	Promo          *Promo    `json:"promo,omitempty"`
	// ClientRef is the idempotency key. Offline submissions use the queue item's local id.
	ClientRef string `json:"client_ref,omitempty"`
}

// Normalize trims text fields and fills defaults (quantity 1, date now).
func (r SubmitRequest) Normalize(now time.Time) SubmitRequest {
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.Note = strings.TrimSpace(r.Note)
	r.ClientRef = strings.TrimSpace(r.ClientRef)
	if r.Quantity <= 0 {
		r.Quantity = 1
	}
	if r.Date.IsZero() {
		r.Date = now
	}
	r.Date = r.Date.UTC()
	if r.Promo != nil {
		p := *r.Promo
		p.Type = PromoType(strings.ToLower(string(p.Type)))
		r.Promo = &p
	}
	return r
}

// Validate checks the request shape. Ownership is checked by the writer.
func (r SubmitRequest) Validate() error {
	if r.WalletID == uuid.Nil {
		return fmt.Errorf("%w: wallet_id is required", errs.ErrValidation)
	}
	if r.CategoryID == uuid.Nil {
		return fmt.Errorf("%w: category_id is required", errs.ErrValidation)
	}
	if r.AmountMinor <= 0 {
		return fmt.Errorf("%w: amount must be > 0", errs.ErrValidation)
	}
	if r.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be >= 1", errs.ErrValidation)
	}
	if r.UnitPriceMinor != nil && *r.UnitPriceMinor < 0 {
		return fmt.Errorf("%w: unit_price must be >= 0", errs.ErrValidation)
	}
	if len(r.ProductName) > 120 || len(r.Note) > 500 {
		return fmt.Errorf("%w: text field too long", errs.ErrValidation)
	}
	if len(r.ClientRef) > MaxClientRefLen {
		return fmt.Errorf("%w: client_ref too long", errs.ErrValidation)
	}
	if r.Promo != nil {
		if err := r.Promo.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks promo parameters for the promo type.
func (p Promo) Validate() error {
	switch PromoType(strings.ToLower(string(p.Type))) {
	case PromoPercent:
		if p.Value < 0 || p.Value > 100 {
			return fmt.Errorf("%w: promo percent must be within 0..100", errs.ErrValidation)
		}
	case PromoFixed:
		if p.Value < 0 {
			return fmt.Errorf("%w: promo value must be >= 0", errs.ErrValidation)
		}
	case PromoBuyXGetY:
		if p.BuyX < 1 || p.GetY < 1 {
			return fmt.Errorf("%w: promo buy_x and get_y must be >= 1", errs.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown promo type %q", errs.ErrValidation, p.Type)
	}
	return nil
}

// SamePayload reports whether tx was created from a request equivalent to r.
// It guards against an idempotency key reused for a different write. A
// transaction detached from its deleted wallet matches on the remaining fields.
func (r SubmitRequest) SamePayload(tx Transaction) bool {
	if tx.WalletID != nil && *tx.WalletID != r.WalletID {
		return false
	}
	return tx.CategoryID == r.CategoryID && tx.AmountMinor() == r.AmountMinor
}

// Draft builds the transaction row the writer inserts.
func (r SubmitRequest) Draft(userID uuid.UUID, curr string, dir Direction, now time.Time) Transaction {
	wid := r.WalletID
	return Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		WalletID:       &wid,
		CategoryID:     r.CategoryID,
		Direction:      dir,
		Amount:         Amount(curr, r.AmountMinor),
		Date:           r.Date,
		CreatedAt:      now,
		ProductName:    r.ProductName,
		Note:           r.Note,
		Quantity:       r.Quantity,
		UnitPriceMinor: r.UnitPriceMinor,
		Promo:          r.Promo,
		ClientRef:      r.ClientRef,
	}
}
