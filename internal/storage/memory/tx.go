package memory

import (
    "context"
    "fmt"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/transaction"
)

// memTx buffers inserts and remembers which wallet versions it observed.
type memTx struct {
    s       *Store
    seen    map[uuid.UUID]uint64
    inserts []ledger.Transaction
}

// WithinSerializable runs fn against a consistent view and commits its inserts
// only if no wallet it read has changed since.
func (s *Store) WithinSerializable(ctx context.Context, fn func(transaction.Tx) error) error {
    if err := ctx.Err(); err != nil { return err }
    t := &memTx{s: s, seen: map[uuid.UUID]uint64{}}
    if err := fn(t); err != nil { return err }
    if s.beforeCommit != nil { s.beforeCommit() }
    return t.commit()
}

func (t *memTx) observe(walletID uuid.UUID) {
    if _, ok := t.seen[walletID]; ok { return }
    t.seen[walletID] = t.s.walletVer[walletID]
}

func (t *memTx) Category(_ context.Context, userID, categoryID uuid.UUID) (ledger.Category, error) {
    t.s.mu.RLock(); defer t.s.mu.RUnlock()
    c, ok := t.s.categories[categoryID]
    if !ok || c.UserID != userID { return ledger.Category{}, errs.ErrNotFound }
    return c, nil
}

func (t *memTx) Wallet(_ context.Context, userID, walletID uuid.UUID) (ledger.Wallet, error) {
    t.s.mu.RLock(); defer t.s.mu.RUnlock()
    t.observe(walletID)
    w, ok := t.s.wallets[walletID]
    if !ok || w.UserID != userID { return ledger.Wallet{}, errs.ErrNotFound }
    return w, nil
}

func (t *memTx) WalletSums(_ context.Context, walletID uuid.UUID) (int64, int64, error) {
    t.s.mu.RLock(); defer t.s.mu.RUnlock()
    t.observe(walletID)
    w, ok := t.s.wallets[walletID]
    if !ok { return 0, 0, errs.ErrNotFound }
    income, expense := t.s.walletSumsLocked(w)
    return income, expense, nil
}

func (t *memTx) TransactionByClientRef(_ context.Context, userID uuid.UUID, ref string) (ledger.Transaction, bool, error) {
    t.s.mu.RLock(); defer t.s.mu.RUnlock()
    if id, ok := t.s.txRef[userID][ref]; ok {
        if tx, ok := t.s.txs[id]; ok { return *tx, true, nil }
    }
    return ledger.Transaction{}, false, nil
}

func (t *memTx) InsertTransaction(_ context.Context, tx ledger.Transaction) error {
    if tx.WalletID != nil {
        t.s.mu.RLock()
        t.observe(*tx.WalletID)
        t.s.mu.RUnlock()
    }
    t.inserts = append(t.inserts, tx)
    return nil
}

func (t *memTx) commit() error {
    s := t.s
    s.mu.Lock(); defer s.mu.Unlock()
    for id, v := range t.seen {
        if s.walletVer[id] != v {
            return fmt.Errorf("%w: wallet %s changed", errs.ErrSerialization, id)
        }
    }
    for _, tx := range t.inserts {
        if tx.ClientRef != "" {
            if _, dup := s.txRef[tx.UserID][tx.ClientRef]; dup {
                return fmt.Errorf("%w: client ref %q committed concurrently", errs.ErrSerialization, tx.ClientRef)
            }
        }
    }
    for i := range t.inserts {
        tx := t.inserts[i]
        s.txs[tx.ID] = &tx
        s.insertTxIndexLocked(tx.UserID, txKey{Date: tx.Date, ID: tx.ID})
        if tx.ClientRef != "" {
            m, ok := s.txRef[tx.UserID]
            if !ok { m = map[string]uuid.UUID{}; s.txRef[tx.UserID] = m }
            m[tx.ClientRef] = tx.ID
        }
        if tx.WalletID != nil { s.walletVer[*tx.WalletID]++ }
    }
    return nil
}
