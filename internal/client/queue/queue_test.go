package queue

import (
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/client/kv"
    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

func payload(amount int64) ledger.SubmitRequest {
    return ledger.SubmitRequest{WalletID: uuid.New(), CategoryID: uuid.New(), AmountMinor: amount, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Quantity: 1}
}

func TestNewLocalID(t *testing.T) {
    id := NewLocalID(time.UnixMilli(1700000000123))
    if !regexp.MustCompile(`^offline-1700000000123-[0-9a-f]{6}$`).MatchString(id) { t.Fatalf("unexpected id %q", id) }
}

func TestQueue_FIFOAndPersistence(t *testing.T) {
    store := kv.NewMemory()
    q := New(store)
    var ids []string
    for i := 1; i <= 3; i++ {
        it, err := q.Enqueue(payload(int64(i * 1000)))
        if err != nil { t.Fatalf("enqueue: %v", err) }
        if it.Payload.ClientRef != it.LocalID { t.Fatalf("client ref %q != local id %q", it.Payload.ClientRef, it.LocalID) }
        ids = append(ids, it.LocalID)
    }

    reloaded := New(store)
    if err := reloaded.Load(); err != nil { t.Fatalf("load: %v", err) }
    if reloaded.Len() != 3 { t.Fatalf("expected 3 items after reload, got %d", reloaded.Len()) }
    for i, it := range reloaded.Items() {
        if it.LocalID != ids[i] || it.Payload.AmountMinor != int64((i+1)*1000) { t.Fatalf("item %d out of order: %+v", i, it) }
    }

    if err := reloaded.Remove(ids[0]); err != nil { t.Fatal(err) }
    front, ok := reloaded.Peek()
    if !ok || front.LocalID != ids[1] { t.Fatalf("unexpected front %+v", front) }

    again := New(store)
    _ = again.Load()
    if again.Len() != 2 { t.Fatalf("remove was not persisted: %d", again.Len()) }
}

func TestQueue_EnqueueKeepsExistingClientRef(t *testing.T) {
    q := New(kv.NewMemory())
    p := payload(500)
    p.ClientRef = "offline-1-abcdef"
    a, _ := q.Enqueue(p)
    b, _ := q.Enqueue(p)
    if a.LocalID != "offline-1-abcdef" || b.LocalID != a.LocalID || q.Len() != 1 {
        t.Fatalf("expected one item keyed by the existing ref, got %d (%s, %s)", q.Len(), a.LocalID, b.LocalID)
    }
}

func TestQueue_ParkRetryDiscard(t *testing.T) {
    store := kv.NewMemory()
    q := New(store)
    a, _ := q.Enqueue(payload(1))
    b, _ := q.Enqueue(payload(2))
    if err := q.Park(a.LocalID, "insufficient_funds", "balance too low"); err != nil { t.Fatal(err) }
    if q.Len() != 1 || len(q.Attention()) != 1 { t.Fatalf("park: queue=%d attention=%d", q.Len(), len(q.Attention())) }

    reloaded := New(store)
    _ = reloaded.Load()
    if p := reloaded.Attention(); len(p) != 1 || p[0].Code != "insufficient_funds" { t.Fatalf("attention not persisted: %+v", p) }

    if _, err := reloaded.Retry(a.LocalID); err != nil { t.Fatal(err) }
    items := reloaded.Items()
    if len(items) != 2 || items[0].LocalID != b.LocalID || items[1].LocalID != a.LocalID { t.Fatalf("retry should append to tail: %+v", items) }

    _ = reloaded.Park(a.LocalID, "validation_error", "bad")
    if err := reloaded.Discard(a.LocalID); err != nil { t.Fatal(err) }
    if len(reloaded.Attention()) != 0 { t.Fatal("discard left the item parked") }
    if err := reloaded.Discard(a.LocalID); !errors.Is(err, errs.ErrNotFound) { t.Fatalf("expected not found, got %v", err) }
}

type failingKV struct{ kv.Store }

func (failingKV) Set(string, []byte) error { return errors.New("disk full") }

func TestQueue_PersistFailureLeavesStateUnchanged(t *testing.T) {
    q := New(failingKV{kv.NewMemory()})
    if _, err := q.Enqueue(payload(1)); err == nil { t.Fatal("expected persist error") }
    if q.Len() != 0 { t.Fatalf("item kept in memory despite failed write") }
}
