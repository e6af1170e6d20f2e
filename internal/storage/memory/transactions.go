package memory

import (
    "context"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/transaction"
)

// ListTransactions returns a user's transactions newest first (by effective date).
func (s *Store) ListTransactions(_ context.Context, userID uuid.UUID, f transaction.Filter) ([]ledger.Transaction, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.Transaction, 0)
    skip := f.Offset
    s.eachMatchLocked(userID, f, func(t *ledger.Transaction) bool {
        if skip > 0 { skip--; return true }
        out = append(out, *t)
        return f.Limit <= 0 || len(out) < f.Limit
    })
    return out, nil
}

// CountTransactions counts the matches of f, ignoring Limit and Offset.
func (s *Store) CountTransactions(_ context.Context, userID uuid.UUID, f transaction.Filter) (int, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    n := 0
    s.eachMatchLocked(userID, f, func(*ledger.Transaction) bool { n++; return true })
    return n, nil
}

// eachMatchLocked walks matches newest first until fn returns false.
func (s *Store) eachMatchLocked(userID uuid.UUID, f transaction.Filter, fn func(*ledger.Transaction) bool) {
    keys := s.rangeByTimeLocked(userID, f.From, f.To)
    for i := len(keys) - 1; i >= 0; i-- {
        t, ok := s.txs[keys[i].ID]
        if !ok { continue }
        if f.WalletID != nil && !t.InWallet(*f.WalletID) { continue }
        if !fn(t) { return }
    }
}

// GetTransaction returns a single transaction for a user.
func (s *Store) GetTransaction(_ context.Context, userID, txID uuid.UUID) (ledger.Transaction, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    t, ok := s.txs[txID]
    if !ok || t.UserID != userID { return ledger.Transaction{}, errs.ErrNotFound }
    return *t, nil
}
