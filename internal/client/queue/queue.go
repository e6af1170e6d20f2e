// Package queue is the client's durable Offline Queue: an ordered list of
// transaction submissions that have not been confirmed by the server yet.
// Every mutation is written through to the kv store before it returns.
package queue

import (
    "crypto/rand"
    "encoding/hex"
    "errors"
    "fmt"
    "strconv"
    "sync"
    "time"

    "github.com/goccy/go-json"

    "github.com/tinoosan/walletledger/internal/client/kv"
    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

const (
    // Key holds the pending items, oldest first.
    Key = "offline-queue-v1"
    // AttentionKey holds items the server rejected permanently.
    AttentionKey = "offline-attention-v1"
)

// Item is one queued submission. LocalID doubles as the payload's ClientRef,
// so a resubmission after a lost acknowledgement replays instead of duplicating.
type Item struct {
    LocalID   string               `json:"local_id"`
    CreatedAt time.Time            `json:"created_at"`
    Payload   ledger.SubmitRequest `json:"payload"`
}

// Parked is an item moved out of the queue because the server rejected it.
type Parked struct {
    Item
    Code     string    `json:"code,omitempty"`
    Reason   string    `json:"reason"`
    ParkedAt time.Time `json:"parked_at"`
}

// Queue is safe for concurrent use.
type Queue struct {
    kv  kv.Store
    now func() time.Time

    mu     sync.Mutex
    items  []Item
    parked []Parked
}

func New(store kv.Store) *Queue { return &Queue{kv: store, now: time.Now} }

// NewLocalID returns an id of the form offline-<unix ms>-<6 hex chars>.
func NewLocalID(now time.Time) string {
    var b [3]byte
    _, _ = rand.Read(b[:])
    return "offline-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + hex.EncodeToString(b[:])
}

// Load replaces the in-memory state with what was last persisted.
func (q *Queue) Load() error {
    q.mu.Lock(); defer q.mu.Unlock()
    var items []Item
    if err := read(q.kv, Key, &items); err != nil { return err }
    var parked []Parked
    if err := read(q.kv, AttentionKey, &parked); err != nil { return err }
    q.items, q.parked = items, parked
    return nil
}

// Enqueue appends p. A payload without a ClientRef gets a fresh local id; an
// existing ClientRef is kept because the server may already have seen it.
func (q *Queue) Enqueue(p ledger.SubmitRequest) (Item, error) {
    q.mu.Lock(); defer q.mu.Unlock()
    now := q.now().UTC()
    if p.ClientRef == "" { p.ClientRef = NewLocalID(now) }
    for _, it := range q.items {
        if it.LocalID == p.ClientRef { return it, nil }
    }
    it := Item{LocalID: p.ClientRef, CreatedAt: now, Payload: p}
    next := append(append([]Item(nil), q.items...), it)
    if err := write(q.kv, Key, next); err != nil { return Item{}, err }
    q.items = next
    return it, nil
}

// Items returns a copy of the queued items in enqueue order.
func (q *Queue) Items() []Item {
    q.mu.Lock(); defer q.mu.Unlock()
    return append([]Item(nil), q.items...)
}

// Peek returns the oldest item.
func (q *Queue) Peek() (Item, bool) {
    q.mu.Lock(); defer q.mu.Unlock()
    if len(q.items) == 0 { return Item{}, false }
    return q.items[0], true
}

func (q *Queue) Len() int {
    q.mu.Lock(); defer q.mu.Unlock()
    return len(q.items)
}

// Remove drops the item with localID. Removing an unknown id is a no-op.
func (q *Queue) Remove(localID string) error {
    q.mu.Lock(); defer q.mu.Unlock()
    i := indexOf(q.items, localID)
    if i < 0 { return nil }
    next := without(q.items, i)
    if err := write(q.kv, Key, next); err != nil { return err }
    q.items = next
    return nil
}

// Park moves an item to the attention list. The attention list is written
// first so a crash in between leaves the item in both places, never in neither.
func (q *Queue) Park(localID, code, reason string) error {
    q.mu.Lock(); defer q.mu.Unlock()
    i := indexOf(q.items, localID)
    if i < 0 { return fmt.Errorf("%w: queued item %s", errs.ErrNotFound, localID) }
    parked := append(append([]Parked(nil), q.parked...), Parked{Item: q.items[i], Code: code, Reason: reason, ParkedAt: q.now().UTC()})
    if err := write(q.kv, AttentionKey, parked); err != nil { return err }
    q.parked = parked
    next := without(q.items, i)
    if err := write(q.kv, Key, next); err != nil { return err }
    q.items = next
    return nil
}

// Attention returns the parked items, oldest first.
func (q *Queue) Attention() []Parked {
    q.mu.Lock(); defer q.mu.Unlock()
    return append([]Parked(nil), q.parked...)
}

// Retry moves a parked item back to the tail of the queue.
func (q *Queue) Retry(localID string) (Item, error) {
    q.mu.Lock(); defer q.mu.Unlock()
    i := parkedIndex(q.parked, localID)
    if i < 0 { return Item{}, fmt.Errorf("%w: parked item %s", errs.ErrNotFound, localID) }
    it := q.parked[i].Item
    items := append(append([]Item(nil), q.items...), it)
    if err := write(q.kv, Key, items); err != nil { return Item{}, err }
    q.items = items
    parked := append(append([]Parked(nil), q.parked[:i]...), q.parked[i+1:]...)
    if err := write(q.kv, AttentionKey, parked); err != nil { return Item{}, err }
    q.parked = parked
    return it, nil
}

// Discard deletes a parked item for good.
func (q *Queue) Discard(localID string) error {
    q.mu.Lock(); defer q.mu.Unlock()
    i := parkedIndex(q.parked, localID)
    if i < 0 { return fmt.Errorf("%w: parked item %s", errs.ErrNotFound, localID) }
    parked := append(append([]Parked(nil), q.parked[:i]...), q.parked[i+1:]...)
    if err := write(q.kv, AttentionKey, parked); err != nil { return err }
    q.parked = parked
    return nil
}

func indexOf(items []Item, localID string) int {
    for i, it := range items {
        if it.LocalID == localID { return i }
    }
    return -1
}

func parkedIndex(items []Parked, localID string) int {
    for i, it := range items {
        if it.LocalID == localID { return i }
    }
    return -1
}

func without(items []Item, i int) []Item {
    return append(append([]Item(nil), items[:i]...), items[i+1:]...)
}

func read(store kv.Store, key string, v any) error {
    b, err := store.Get(key)
    if errors.Is(err, kv.ErrNotFound) { return nil }
    if err != nil { return fmt.Errorf("read %s: %w", key, err) }
    if err := json.Unmarshal(b, v); err != nil { return fmt.Errorf("decode %s: %w", key, err) }
    return nil
}

func write(store kv.Store, key string, v any) error {
    b, err := json.Marshal(v)
    if err != nil { return fmt.Errorf("encode %s: %w", key, err) }
    if err := store.Set(key, b); err != nil { return fmt.Errorf("persist %s: %w", key, err) }
    return nil
}
