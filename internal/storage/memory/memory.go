package memory

// Package memory provides an in-memory implementation used for development and tests.
// Writer units of work are optimistic: reads record the version of every wallet
// they touch and commit fails with errs.ErrSerialization if any of them moved.
import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/ledger"
)

// txKey tracks ordering for transactions per user: sorted asc by (Date, ID)
type txKey struct {
    Date time.Time
    ID   uuid.UUID
}

// Store is an in-memory implementation of the repositories and writers used by the services.
// It is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
    mu         sync.RWMutex
    users      map[uuid.UUID]ledger.User
    wallets    map[uuid.UUID]ledger.Wallet
    walletVer  map[uuid.UUID]uint64
    categories map[uuid.UUID]ledger.Category
    txs        map[uuid.UUID]*ledger.Transaction
    // Per-user sorted index of transactions for ordered scans
    txKeysByUser map[uuid.UUID][]txKey
    // Idempotency: userID -> client ref -> transaction ID
    txRef         map[uuid.UUID]map[string]uuid.UUID
    notes         map[uuid.UUID]*ledger.Notification
    notesByUser   map[uuid.UUID][]uuid.UUID

    // beforeCommit runs between the unit of work and its commit check. Tests use it.
    beforeCommit func()
}

// New constructs an empty in-memory store.
func New() *Store {
    s := &Store{}
    s.Reset()
    return s
}

// Reset drops all data.
func (s *Store) Reset() {
    s.mu.Lock()
    s.users = map[uuid.UUID]ledger.User{}
    s.wallets = map[uuid.UUID]ledger.Wallet{}
    s.walletVer = map[uuid.UUID]uint64{}
    s.categories = map[uuid.UUID]ledger.Category{}
    s.txs = map[uuid.UUID]*ledger.Transaction{}
    s.txKeysByUser = map[uuid.UUID][]txKey{}
    s.txRef = map[uuid.UUID]map[string]uuid.UUID{}
    s.notes = map[uuid.UUID]*ledger.Notification{}
    s.notesByUser = map[uuid.UUID][]uuid.UUID{}
    s.mu.Unlock()
}

// Seed helpers for local dev/tests.
func (s *Store) SeedUser(u ledger.User)         { s.mu.Lock(); s.users[u.ID] = u; s.mu.Unlock() }
func (s *Store) SeedWallet(w ledger.Wallet)     { s.mu.Lock(); s.wallets[w.ID] = w; s.walletVer[w.ID]++; s.mu.Unlock() }
func (s *Store) SeedCategory(c ledger.Category) { s.mu.Lock(); s.categories[c.ID] = c; s.mu.Unlock() }

// Ready always succeeds for the memory store.
func (s *Store) Ready(context.Context) error { return nil }

// EnsureUser records the user if unknown. It reports whether the user was created.
func (s *Store) EnsureUser(_ context.Context, u ledger.User) (bool, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    if _, ok := s.users[u.ID]; ok { return false, nil }
    s.users[u.ID] = u
    return true, nil
}

// GetUser returns the user or a zero user with the id set.
func (s *Store) GetUser(_ context.Context, userID uuid.UUID) (ledger.User, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    if u, ok := s.users[userID]; ok { return u, nil }
    return ledger.User{ID: userID}, nil
}

// SetUserCurrency records curr as the user's display currency.
func (s *Store) SetUserCurrency(_ context.Context, userID uuid.UUID, curr string) (ledger.User, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    u, ok := s.users[userID]
    if !ok { u = ledger.User{ID: userID} }
    u.Currency = curr
    s.users[userID] = u
    return u, nil
}

// insertTxIndexLocked inserts k into the per-user sorted index, keeping order asc by (Date, ID).
// Caller must hold s.mu (write lock).
func (s *Store) insertTxIndexLocked(userID uuid.UUID, k txKey) {
    keys := s.txKeysByUser[userID]
    // binary search for first position > k (stable insert after equal)
    i := sort.Search(len(keys), func(i int) bool {
        if keys[i].Date.After(k.Date) { return true }
        if keys[i].Date.Equal(k.Date) { return keys[i].ID.String() > k.ID.String() }
        return false
    })
    if i == len(keys) {
        s.txKeysByUser[userID] = append(keys, k)
        return
    }
    keys = append(keys, txKey{})
    copy(keys[i+1:], keys[i:])
    keys[i] = k
    s.txKeysByUser[userID] = keys
}

// rangeByTimeLocked returns the keys within [from,to] inclusive for a user.
// Caller must hold s.mu.
func (s *Store) rangeByTimeLocked(userID uuid.UUID, from, to *time.Time) []txKey {
    keys := s.txKeysByUser[userID]
    if len(keys) == 0 { return nil }
    start := 0
    if from != nil {
        f := *from
        start = sort.Search(len(keys), func(i int) bool { return !keys[i].Date.Before(f) })
    }
    end := len(keys)
    if to != nil {
        t := *to
        end = sort.Search(len(keys), func(i int) bool { return keys[i].Date.After(t) })
    }
    if start > end { return nil }
    return keys[start:end]
}

// walletSumsLocked aggregates a wallet's committed income and expense. Caller must hold s.mu.
func (s *Store) walletSumsLocked(w ledger.Wallet) (income, expense int64) {
    var posts []ledger.Posting
    for _, k := range s.txKeysByUser[w.UserID] {
        if t, ok := s.txs[k.ID]; ok && t.InWallet(w.ID) {
            posts = append(posts, t.Posting())
        }
    }
    d := ledger.Derive(0, posts)
    return d.Income, d.Expense
}
