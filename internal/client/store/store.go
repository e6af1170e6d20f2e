// Package store is the client Ledger Store: the last server-confirmed
// snapshot plus pending transactions materialized from the Offline Queue.
// Wallet balances are derived over both, so money the user has already
// recorded offline is never missing from what they see.
package store

import (
    "errors"
    "fmt"
    "log/slog"
    "sort"
    "sync"
    "time"

    "github.com/goccy/go-json"
    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/client/kv"
    "github.com/tinoosan/walletledger/internal/client/queue"
    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

// Key is the kv key of the persisted snapshot.
const Key = "offline-cache-v1"

// Store owns the client's ledger state. All mutation goes through its methods.
type Store struct {
    kv  kv.Store
    log *slog.Logger
    now func() time.Time

    mu      sync.RWMutex
    snap    Snapshot
    cached  bool
    pending []Transaction
}

func New(store kv.Store, logger *slog.Logger) *Store {
    if logger == nil { logger = slog.Default() }
    return &Store{kv: store, log: logger, now: time.Now}
}

// Load restores the persisted snapshot and materializes queued items on top
// of it. It reports whether a usable cache was found.
func (s *Store) Load(queued []queue.Item) (bool, error) {
    b, err := s.kv.Get(Key)
    var snap Snapshot
    switch {
    case errors.Is(err, kv.ErrNotFound):
    case err != nil:
        return false, fmt.Errorf("read %s: %w", Key, err)
    default:
        if err := json.Unmarshal(b, &snap); err != nil {
            s.log.Warn("ignoring unreadable ledger cache", "err", err)
            snap = Snapshot{}
        } else if snap.Version != Version {
            s.log.Warn("ignoring ledger cache with another version", "version", snap.Version)
            snap = Snapshot{}
        }
    }
    s.mu.Lock(); defer s.mu.Unlock()
    s.snap = snap
    s.cached = snap.Version == Version
    s.rebuildLocked(queued)
    return s.cached, nil
}

// Cached reports whether any confirmed snapshot is available.
func (s *Store) Cached() bool {
    s.mu.RLock(); defer s.mu.RUnlock()
    return s.cached
}

// ApplySnapshot replaces the confirmed state with snap and re-materializes
// queued items whose ClientRef the server has not confirmed yet.
func (s *Store) ApplySnapshot(snap Snapshot, queued []queue.Item) error {
    snap.Version = Version
    if snap.UpdatedAt.IsZero() { snap.UpdatedAt = s.now().UTC() }
    s.mu.Lock(); defer s.mu.Unlock()
    if err := s.persistLocked(snap); err != nil { return err }
    s.snap = snap
    s.cached = true
    s.rebuildLocked(queued)
    return nil
}

// rebuildLocked recomputes the pending projection from queued items.
func (s *Store) rebuildLocked(queued []queue.Item) {
    confirmed := make(map[string]bool, len(s.snap.Transactions))
    for _, t := range s.snap.Transactions {
        if t.ClientRef != "" { confirmed[t.ClientRef] = true }
    }
    s.pending = s.pending[:0]
    for _, it := range queued {
        if confirmed[it.LocalID] { continue }
        t := s.materializeLocked(it)
        if t.Unresolved {
            s.log.Warn("queued transaction has no cached category", "local_id", it.LocalID, "category_id", it.Payload.CategoryID)
        }
        s.pending = append(s.pending, t)
    }
}

func (s *Store) materializeLocked(it queue.Item) Transaction {
    p := it.Payload
    var dir ledger.Direction
    for _, c := range s.snap.Categories {
        if c.ID == p.CategoryID { dir = c.Direction; break }
    }
    curr := s.snap.Currency
    for _, w := range s.snap.Wallets {
        if w.ID == p.WalletID { curr = w.Currency; break }
    }
    wid := p.WalletID
    return Transaction{
        LocalID:        it.LocalID,
        Pending:        true,
        Unresolved:     dir == "",
        WalletID:       &wid,
        CategoryID:     p.CategoryID,
        Direction:      dir,
        AmountMinor:    p.AmountMinor,
        Currency:       curr,
        Date:           p.Date,
        CreatedAt:      it.CreatedAt,
        ProductName:    p.ProductName,
        Note:           p.Note,
        Quantity:       p.Quantity,
        UnitPriceMinor: p.UnitPriceMinor,
        Promo:          p.Promo,
        ClientRef:      it.LocalID,
    }
}

// AddPending materializes one newly queued item. An item whose category is
// not cached is kept as an Unresolved placeholder and reported with
// errs.ErrNotFound; it is resolved by the next snapshot that has the category.
func (s *Store) AddPending(it queue.Item) (Transaction, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    for _, p := range s.pending {
        if p.LocalID == it.LocalID { return p, nil }
    }
    t := s.materializeLocked(it)
    s.pending = append(s.pending, t)
    if t.Unresolved { return t, fmt.Errorf("%w: category %s", errs.ErrNotFound, it.Payload.CategoryID) }
    return t, nil
}

// Unresolved returns pending placeholders whose direction is unknown. They
// are left out of Balances until their category is cached.
func (s *Store) Unresolved() []Transaction {
    s.mu.RLock(); defer s.mu.RUnlock()
    var out []Transaction
    for _, p := range s.pending {
        if p.Unresolved { out = append(out, p) }
    }
    return out
}

// DropPending removes a placeholder without confirming it.
func (s *Store) DropPending(localID string) {
    s.mu.Lock(); defer s.mu.Unlock()
    s.dropPendingLocked(localID)
}

func (s *Store) dropPendingLocked(localID string) {
    for i, p := range s.pending {
        if p.LocalID == localID {
            s.pending = append(s.pending[:i], s.pending[i+1:]...)
            return
        }
    }
}

// Confirm merges a server-confirmed transaction and drops the placeholder
// for localID, if any. The snapshot is persisted so a reload keeps it.
func (s *Store) Confirm(localID string, t Transaction) error {
    t.Pending, t.LocalID = false, ""
    s.mu.Lock(); defer s.mu.Unlock()
    next := s.snap
    next.Transactions = make([]Transaction, 0, len(s.snap.Transactions)+1)
    for _, x := range s.snap.Transactions {
        if x.ID != t.ID { next.Transactions = append(next.Transactions, x) }
    }
    next.Transactions = append(next.Transactions, t)
    next.Version = Version
    if err := s.persistLocked(next); err != nil { return err }
    s.snap = next
    s.dropPendingLocked(localID)
    return nil
}

// MarkNotificationRead flips one cached notification to read.
func (s *Store) MarkNotificationRead(id uuid.UUID) error {
    return s.mutateNotifications(func(n *Notification) bool {
        if n.ID != id || n.Read { return false }
        n.Read = true
        return true
    })
}

// MarkAllRead flips every cached notification to read.
func (s *Store) MarkAllRead() error {
    return s.mutateNotifications(func(n *Notification) bool {
        if n.Read { return false }
        n.Read = true
        return true
    })
}

func (s *Store) mutateNotifications(fn func(*Notification) bool) error {
    s.mu.Lock(); defer s.mu.Unlock()
    next := s.snap
    next.Notifications = append([]Notification(nil), s.snap.Notifications...)
    changed := false
    for i := range next.Notifications {
        if fn(&next.Notifications[i]) { changed = true }
    }
    if !changed { return nil }
    if err := s.persistLocked(next); err != nil { return err }
    s.snap = next
    return nil
}

func (s *Store) persistLocked(snap Snapshot) error {
    b, err := json.Marshal(snap)
    if err != nil { return fmt.Errorf("encode %s: %w", Key, err) }
    if err := s.kv.Set(Key, b); err != nil { return fmt.Errorf("persist %s: %w", Key, err) }
    return nil
}

// Snapshot returns a copy of the confirmed state.
func (s *Store) Snapshot() Snapshot {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := s.snap
    out.Wallets = append([]Wallet(nil), s.snap.Wallets...)
    out.Categories = append([]Category(nil), s.snap.Categories...)
    out.Transactions = append([]Transaction(nil), s.snap.Transactions...)
    out.Notifications = append([]Notification(nil), s.snap.Notifications...)
    return out
}

// Pending returns the unconfirmed placeholders in enqueue order.
func (s *Store) Pending() []Transaction {
    s.mu.RLock(); defer s.mu.RUnlock()
    return append([]Transaction(nil), s.pending...)
}

// Transactions returns confirmed and pending transactions, newest first by
// date then creation time.
func (s *Store) Transactions() []Transaction {
    s.mu.RLock()
    out := make([]Transaction, 0, len(s.snap.Transactions)+len(s.pending))
    out = append(out, s.snap.Transactions...)
    out = append(out, s.pending...)
    s.mu.RUnlock()
    sort.SliceStable(out, func(i, j int) bool {
        if !out[i].Date.Equal(out[j].Date) { return out[i].Date.After(out[j].Date) }
        return out[i].CreatedAt.After(out[j].CreatedAt)
    })
    return out
}

// WalletTotals derives a wallet's totals over confirmed and pending transactions.
func (s *Store) WalletTotals(walletID uuid.UUID) (ledger.Totals, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    for _, w := range s.snap.Wallets {
        if w.ID == walletID { return s.totalsLocked(w), nil }
    }
    return ledger.Totals{}, fmt.Errorf("%w: wallet %s", errs.ErrNotFound, walletID)
}

// Balances derives totals for every known wallet.
func (s *Store) Balances() map[uuid.UUID]ledger.Totals {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make(map[uuid.UUID]ledger.Totals, len(s.snap.Wallets))
    for _, w := range s.snap.Wallets { out[w.ID] = s.totalsLocked(w) }
    return out
}

func (s *Store) totalsLocked(w Wallet) ledger.Totals {
    var postings []ledger.Posting
    for _, set := range [][]Transaction{s.snap.Transactions, s.pending} {
        for _, t := range set {
            if t.WalletID != nil && *t.WalletID == w.ID { postings = append(postings, t.Posting()) }
        }
    }
    return ledger.Derive(w.InitialBalanceMinor, postings)
}
