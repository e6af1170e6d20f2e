package syncer_test

import (
    "context"
    "errors"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync/atomic"
    "testing"
    "time"

    "github.com/brianvoe/gofakeit/v6"
    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/client/api"
    "github.com/tinoosan/walletledger/internal/client/kv"
    "github.com/tinoosan/walletledger/internal/client/queue"
    "github.com/tinoosan/walletledger/internal/client/store"
    "github.com/tinoosan/walletledger/internal/client/syncer"
    v1 "github.com/tinoosan/walletledger/internal/httpapi/v1"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/retry"
    "github.com/tinoosan/walletledger/internal/service/transaction"
    "github.com/tinoosan/walletledger/internal/storage/memory"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// dropFirstAck forwards every request but reports the first transaction
// POST as failed, as if the response was lost on the way back.
type dropFirstAck struct {
    dropped atomic.Bool
}

func (d *dropFirstAck) RoundTrip(r *http.Request) (*http.Response, error) {
    resp, err := http.DefaultTransport.RoundTrip(r)
    if err != nil { return nil, err }
    if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/v1/transactions") && d.dropped.CompareAndSwap(false, true) {
        resp.Body.Close()
        return nil, errors.New("connection reset by peer")
    }
    return resp, nil
}

type env struct {
    server  *memory.Store
    user    uuid.UUID
    wallet  ledger.Wallet
    food    ledger.Category
    engine  *syncer.Engine
    manager *syncer.Manager
    store   *store.Store
    queue   *queue.Queue
}

func newEnv(t *testing.T, initial int64, rt http.RoundTripper) env {
    t.Helper()
    srv := memory.New()
    user := ledger.User{ID: uuid.New(), Currency: "IDR"}
    srv.SeedUser(user)
    now := time.Now().UTC()
    w := ledger.Wallet{ID: uuid.New(), UserID: user.ID, Name: "Cash", Kind: ledger.WalletKindCash, InitialBalance: ledger.Amount("IDR", initial), CreatedAt: now}
    food := ledger.Category{ID: uuid.New(), UserID: user.ID, Name: "Food", Direction: ledger.DirectionExpense, Icon: "fa-utensils", CreatedAt: now}
    srv.SeedWallet(w)
    srv.SeedCategory(food)

    h := v1.New(srv, nil, nil, v1.Options{Retry: retry.Default()}, quietLogger()).Handler()
    ts := httptest.NewServer(h)
    t.Cleanup(ts.Close)

    opts := api.Options{BaseURL: ts.URL, UserID: user.ID}
    if rt != nil { opts.HTTPClient = &http.Client{Transport: rt, Timeout: 5 * time.Second} }
    client := api.New(opts)

    mem := kv.NewMemory()
    q := queue.New(mem)
    s := store.New(mem, quietLogger())
    e := syncer.New(client, q, s, syncer.Options{ItemTimeout: 5 * time.Second}, quietLogger())
    return env{server: srv, user: user.ID, wallet: w, food: food, engine: e, manager: syncer.NewManager(e), store: s, queue: q}
}

func (v env) serverTransactions(t *testing.T) []ledger.Transaction {
    t.Helper()
    txs, err := v.server.ListTransactions(context.Background(), v.user, transaction.Filter{})
    if err != nil { t.Fatal(err) }
    return txs
}

func (v env) spend(t *testing.T, amount int64) syncer.Outcome {
    t.Helper()
    out, err := v.manager.Record(context.Background(), ledger.SubmitRequest{
        WalletID: v.wallet.ID, CategoryID: v.food.ID, AmountMinor: amount, ProductName: gofakeit.ProductName(),
    })
    if err != nil { t.Fatalf("record: %v", err) }
    return out
}

func TestOfflineExpenseSyncsToCanonicalBalance(t *testing.T) {
    v := newEnv(t, 70_000, nil)
    ctx := context.Background()
    v.engine.Online(ctx)
    if err := v.engine.Refresh(ctx); err != nil { t.Fatalf("refresh: %v", err) }
    v.engine.Offline()

    out := v.spend(t, 20_000)
    if !out.Queued { t.Fatalf("expected a queued write, got %+v", out) }
    tot, err := v.store.WalletTotals(v.wallet.ID)
    if err != nil || tot.Balance != 50_000 { t.Fatalf("local balance = %d (%v), want 50000", tot.Balance, err) }
    if n := len(v.serverTransactions(t)); n != 0 { t.Fatalf("server has %d transactions while offline", n) }

    rep := v.engine.Online(ctx)
    if rep.Synced != 1 || rep.Remaining != 0 || rep.Notice != "" { t.Fatalf("unexpected report: %+v", rep) }
    tot, _ = v.store.WalletTotals(v.wallet.ID)
    if tot.Balance != 50_000 || len(v.store.Pending()) != 0 { t.Fatalf("canonical balance = %d, pending = %d", tot.Balance, len(v.store.Pending())) }
}

func TestOfflineWritesReplayExactlyOnce(t *testing.T) {
    v := newEnv(t, 1_000_000, nil)
    ctx := context.Background()
    v.engine.Online(ctx)
    if err := v.engine.Refresh(ctx); err != nil { t.Fatalf("refresh: %v", err) }
    v.engine.Offline()

    const n = 5
    var want int64
    for i := 0; i < n; i++ {
        amt := int64(gofakeit.IntRange(1, 50)) * 1_000
        want += amt
        v.spend(t, amt)
    }
    rep := v.engine.Online(ctx)
    if rep.Synced != n { t.Fatalf("synced %d, want %d", rep.Synced, n) }
    // a second pass over an empty queue must not resubmit anything
    v.engine.Drain(ctx)
    txs := v.serverTransactions(t)
    if len(txs) != n { t.Fatalf("server has %d transactions, want %d", len(txs), n) }
    tot, _ := v.store.WalletTotals(v.wallet.ID)
    if tot.Balance != 1_000_000-want { t.Fatalf("balance = %d, want %d", tot.Balance, 1_000_000-want) }
}

func TestLostAcknowledgementIsNotDuplicated(t *testing.T) {
    v := newEnv(t, 100_000, &dropFirstAck{})
    ctx := context.Background()
    v.engine.Online(ctx)
    if err := v.engine.Refresh(ctx); err != nil { t.Fatalf("refresh: %v", err) }

    out := v.spend(t, 30_000)
    if !out.Queued { t.Fatalf("a lost acknowledgement should queue the write: %+v", out) }
    if n := len(v.serverTransactions(t)); n != 1 { t.Fatalf("server has %d transactions, want 1", n) }

    rep := v.engine.Drain(ctx)
    if rep.Synced != 1 || rep.Remaining != 0 { t.Fatalf("unexpected report: %+v", rep) }
    if n := len(v.serverTransactions(t)); n != 1 { t.Fatalf("replay duplicated the transaction: %d on server", n) }
    tot, _ := v.store.WalletTotals(v.wallet.ID)
    if tot.Balance != 70_000 { t.Fatalf("balance = %d, want 70000", tot.Balance) }
}

func TestOfflineOverspendIsParked(t *testing.T) {
    v := newEnv(t, 10_000, nil)
    ctx := context.Background()
    v.engine.Online(ctx)
    if err := v.engine.Refresh(ctx); err != nil { t.Fatalf("refresh: %v", err) }
    v.engine.Offline()

    big := v.spend(t, 25_000)
    v.spend(t, 4_000)
    rep := v.engine.Online(ctx)
    if rep.Synced != 1 || rep.Parked != 1 || rep.Notice != syncer.NoticeNeedsAction { t.Fatalf("unexpected report: %+v", rep) }
    parked := v.queue.Attention()
    if len(parked) != 1 || parked[0].LocalID != big.Transaction.LocalID { t.Fatalf("attention list: %+v", parked) }
    tot, _ := v.store.WalletTotals(v.wallet.ID)
    if tot.Balance != 6_000 { t.Fatalf("balance = %d, want 6000", tot.Balance) }
}
