package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/walletledger/internal/errs"
)

func TestSubmitRequest_Validate(t *testing.T) {
	base := SubmitRequest{WalletID: uuid.New(), CategoryID: uuid.New(), AmountMinor: 100}
	neg := int64(-1)
	cases := []struct {
		name string
		mut  func(r *SubmitRequest)
		ok   bool
	}{
		{"valid", func(r *SubmitRequest) {}, true},
		{"missing wallet", func(r *SubmitRequest) { r.WalletID = uuid.Nil }, false},
		{"missing category", func(r *SubmitRequest) { r.CategoryID = uuid.Nil }, false},
		{"zero amount", func(r *SubmitRequest) { r.AmountMinor = 0 }, false},
		{"negative amount", func(r *SubmitRequest) { r.AmountMinor = -5 }, false},
		{"negative unit price", func(r *SubmitRequest) { r.UnitPriceMinor = &neg }, false},
		{"percent promo", func(r *SubmitRequest) { r.Promo = &Promo{Type: PromoPercent, Value: 10} }, true},
		{"percent promo over 100", func(r *SubmitRequest) { r.Promo = &Promo{Type: PromoPercent, Value: 101} }, false},
		{"buy x get y", func(r *SubmitRequest) { r.Promo = &Promo{Type: PromoBuyXGetY, BuyX: 2, GetY: 1} }, true},
		{"unknown promo", func(r *SubmitRequest) { r.Promo = &Promo{Type: "bogus"} }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := base
			tc.mut(&r)
			err := r.Normalize(time.Now()).Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSubmitRequest_NormalizeDefaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := SubmitRequest{ProductName: "  coffee ", Promo: &Promo{Type: "PERCENT", Value: 5}}.Normalize(now)
	if r.Quantity != 1 || !r.Date.Equal(now) || r.ProductName != "coffee" || r.Promo.Type != PromoPercent {
		t.Fatalf("unexpected normalized request %+v", r)
	}
}

func TestSubmitRequest_SamePayload(t *testing.T) {
	r := SubmitRequest{WalletID: uuid.New(), CategoryID: uuid.New(), AmountMinor: 500}
	tx := r.Draft(uuid.New(), "IDR", DirectionExpense, time.Now())
	if !r.SamePayload(tx) {
		t.Fatalf("draft should match its own request")
	}
	r2 := r
	r2.AmountMinor = 501
	if r2.SamePayload(tx) {
		t.Fatalf("different amount must not match")
	}
}
