package memory

import (
    "context"
    "fmt"
    "sort"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/slug"
)

// ListWallets returns a user's wallets ordered by creation time.
func (s *Store) ListWallets(_ context.Context, userID uuid.UUID) ([]ledger.Wallet, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.Wallet, 0)
    for _, w := range s.wallets {
        if w.UserID == userID { out = append(out, w) }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].CreatedAt.Equal(out[j].CreatedAt) { return out[i].Name < out[j].Name }
        return out[i].CreatedAt.Before(out[j].CreatedAt)
    })
    return out, nil
}

// GetWallet returns a user's wallet by ID.
func (s *Store) GetWallet(_ context.Context, userID, walletID uuid.UUID) (ledger.Wallet, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    w, ok := s.wallets[walletID]
    if !ok || w.UserID != userID { return ledger.Wallet{}, errs.ErrNotFound }
    return w, nil
}

// WalletTotals derives a wallet's totals from its committed transactions.
func (s *Store) WalletTotals(_ context.Context, userID, walletID uuid.UUID) (ledger.Totals, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    w, ok := s.wallets[walletID]
    if !ok || w.UserID != userID { return ledger.Totals{}, errs.ErrNotFound }
    income, expense := s.walletSumsLocked(w)
    return ledger.FromSums(ledger.Minor(w.InitialBalance), income, expense), nil
}

// CreateWallet persists a new wallet. Names are unique per user, case-insensitively.
func (s *Store) CreateWallet(_ context.Context, w ledger.Wallet) (ledger.Wallet, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    if s.walletNameTakenLocked(w.UserID, w.ID, w.Name) { return ledger.Wallet{}, fmt.Errorf("%w: wallet name already used", errs.ErrConflict) }
    s.wallets[w.ID] = w
    s.walletVer[w.ID]++
    return w, nil
}

// UpdateWallet replaces name and kind and adds adjustMinor to the current
// initial balance. The derived balance must stay non-negative after the change.
func (s *Store) UpdateWallet(_ context.Context, w ledger.Wallet, adjustMinor int64) (ledger.Wallet, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    cur, ok := s.wallets[w.ID]
    if !ok || cur.UserID != w.UserID { return ledger.Wallet{}, errs.ErrNotFound }
    if s.walletNameTakenLocked(w.UserID, w.ID, w.Name) { return ledger.Wallet{}, fmt.Errorf("%w: wallet name already used", errs.ErrConflict) }
    initial := ledger.Minor(cur.InitialBalance) + adjustMinor
    if initial < 0 { return ledger.Wallet{}, errs.ErrInsufficientFunds }
    income, expense := s.walletSumsLocked(cur)
    if ledger.FromSums(initial, income, expense).Balance < 0 {
        return ledger.Wallet{}, errs.ErrInsufficientFunds
    }
    w.InitialBalance = ledger.Amount(cur.InitialBalance.Curr().Code(), initial)
    w.CreatedAt = cur.CreatedAt
    s.wallets[w.ID] = w
    s.walletVer[w.ID]++
    return w, nil
}

// DeleteWallet removes the wallet and detaches its transactions.
func (s *Store) DeleteWallet(_ context.Context, userID, walletID uuid.UUID) error {
    s.mu.Lock(); defer s.mu.Unlock()
    w, ok := s.wallets[walletID]
    if !ok || w.UserID != userID { return errs.ErrNotFound }
    for _, k := range s.txKeysByUser[userID] {
        if t, ok := s.txs[k.ID]; ok && t.InWallet(walletID) { t.WalletID = nil }
    }
    delete(s.wallets, walletID)
    s.walletVer[walletID]++
    return nil
}

func (s *Store) walletNameTakenLocked(userID, selfID uuid.UUID, name string) bool {
    key := slug.NameKey(name)
    for _, w := range s.wallets {
        if w.UserID == userID && w.ID != selfID && slug.NameKey(w.Name) == key { return true }
    }
    return false
}
