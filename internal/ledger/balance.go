package ledger

import (
	"errors"
	"math"

	"github.com/google/uuid"
)

// ErrOverflow is returned when totals do not fit in int64 minor units.
var ErrOverflow = errors.New("ledger totals overflow")

// Posting is the part of a transaction that affects a wallet balance.
type Posting struct {
	Direction   Direction
	AmountMinor int64
}

// Totals is the derived state of one wallet.
type Totals struct {
	Balance int64
	Income  int64
	Expense int64
}

// Derive computes initial + Σincome − Σexpense. It is pure and insensitive to
// the order of postings. Postings with an unknown direction are ignored.
// On int64 overflow the result saturates; use DeriveChecked to detect it.
func Derive(initialMinor int64, postings []Posting) Totals {
	t, _ := DeriveChecked(initialMinor, postings)
	return t
}

// DeriveChecked is Derive with overflow reported as ErrOverflow.
func DeriveChecked(initialMinor int64, postings []Posting) (Totals, error) {
	var income, expense int64
	var overflow bool
	for _, p := range postings {
		switch p.Direction {
		case DirectionIncome:
			income, overflow = addSat(income, p.AmountMinor, overflow)
		case DirectionExpense:
			expense, overflow = addSat(expense, p.AmountMinor, overflow)
		}
	}
	bal, of := addSat(initialMinor, income, overflow)
	bal, of = subSat(bal, expense, of)
	t := Totals{Balance: bal, Income: income, Expense: expense}
	if of {
		return t, ErrOverflow
	}
	return t, nil
}

// FromSums builds totals from pre-aggregated income and expense sums, as a
// storage layer returns them.
func FromSums(initialMinor, income, expense int64) Totals {
	bal, _ := addSat(initialMinor, income, false)
	bal, _ = subSat(bal, expense, false)
	return Totals{Balance: bal, Income: income, Expense: expense}
}

// Apply returns the totals after p.
func (t Totals) Apply(p Posting) Totals {
	switch p.Direction {
	case DirectionIncome:
		t.Income, _ = addSat(t.Income, p.AmountMinor, false)
		t.Balance, _ = addSat(t.Balance, p.AmountMinor, false)
	case DirectionExpense:
		t.Expense, _ = addSat(t.Expense, p.AmountMinor, false)
		t.Balance, _ = subSat(t.Balance, p.AmountMinor, false)
	}
	return t
}

// Allows reports whether posting p keeps the balance non-negative.
// Income is always allowed.
func (t Totals) Allows(p Posting) bool {
	if p.Direction != DirectionExpense {
		return true
	}
	return t.Apply(p).Balance >= 0
}

// WalletPostings selects the postings of txs attached to walletID.
func WalletPostings(walletID uuid.UUID, txs []Transaction) []Posting {
	out := make([]Posting, 0, len(txs))
	for _, tx := range txs {
		if tx.InWallet(walletID) {
			out = append(out, tx.Posting())
		}
	}
	return out
}

// DeriveWallet derives a wallet's totals from the full transaction set.
func DeriveWallet(w Wallet, txs []Transaction) Totals {
	return Derive(Minor(w.InitialBalance), WalletPostings(w.ID, txs))
}

func addSat(a, b int64, of bool) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64, true
	}
	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64, true
	}
	return a + b, of
}

func subSat(a, b int64, of bool) (int64, bool) {
	if b == math.MinInt64 {
		return math.MaxInt64, true
	}
	return addSat(a, -b, of)
}
