package transaction_test

import (
    "context"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/retry"
    "github.com/tinoosan/walletledger/internal/service/transaction"
    "github.com/tinoosan/walletledger/internal/storage/memory"
)

func testLogger() *slog.Logger {
    return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type captureNotifier struct {
    mu    sync.Mutex
    items []ledger.Notification
    drop  bool
}

func (c *captureNotifier) Enqueue(n ledger.Notification) bool {
    c.mu.Lock(); defer c.mu.Unlock()
    if c.drop { return false }
    c.items = append(c.items, n)
    return true
}

func (c *captureNotifier) bySeverity(s ledger.Severity) int {
    c.mu.Lock(); defer c.mu.Unlock()
    n := 0
    for _, it := range c.items { if it.Severity == s { n++ } }
    return n
}

type fixture struct {
    store   *memory.Store
    svc     transaction.Service
    notes   *captureNotifier
    user    uuid.UUID
    wallet  ledger.Wallet
    expense ledger.Category
    income  ledger.Category
}

func setup(t *testing.T, threshold int64) fixture {
    t.Helper()
    store := memory.New()
    user := uuid.New()
    store.SeedUser(ledger.User{ID: user, Currency: "IDR"})
    w := ledger.Wallet{ID: uuid.New(), UserID: user, Name: "Main", Kind: ledger.WalletKindBank, InitialBalance: ledger.Amount("IDR", 100_000), CreatedAt: time.Now()}
    exp := ledger.Category{ID: uuid.New(), UserID: user, Name: "Food", Direction: ledger.DirectionExpense}
    inc := ledger.Category{ID: uuid.New(), UserID: user, Name: "Salary", Direction: ledger.DirectionIncome}
    store.SeedWallet(w)
    store.SeedCategory(exp)
    store.SeedCategory(inc)
    notes := &captureNotifier{}
    svc := transaction.New(store, store, notes, transaction.Options{LowBalanceThresholdMinor: threshold, Retry: retry.Policy{MaxRetries: 2}}, testLogger())
    return fixture{store: store, svc: svc, notes: notes, user: user, wallet: w, expense: exp, income: inc}
}

func (f fixture) req(c ledger.Category, amount int64) ledger.SubmitRequest {
    return ledger.SubmitRequest{WalletID: f.wallet.ID, CategoryID: c.ID, AmountMinor: amount, Date: time.Now()}
}

func (f fixture) balance(t *testing.T) int64 {
    t.Helper()
    tot, err := f.store.WalletTotals(context.Background(), f.user, f.wallet.ID)
    if err != nil { t.Fatalf("totals: %v", err) }
    return tot.Balance
}

func TestSubmit_Scenario(t *testing.T) {
    f := setup(t, 0)
    ctx := context.Background()

    res, err := f.svc.Submit(ctx, f.user, f.req(f.expense, 40_000))
    if err != nil { t.Fatalf("expense 40000: %v", err) }
    if res.Totals.Balance != 60_000 { t.Fatalf("expected 60000, got %d", res.Totals.Balance) }

    _, err = f.svc.Submit(ctx, f.user, f.req(f.expense, 70_000))
    if !errors.Is(err, errs.ErrInsufficientFunds) { t.Fatalf("expected insufficient funds, got %v", err) }
    if b := f.balance(t); b != 60_000 { t.Fatalf("rejected write changed balance: %d", b) }

    res, err = f.svc.Submit(ctx, f.user, f.req(f.income, 10_000))
    if err != nil { t.Fatalf("income 10000: %v", err) }
    if res.Totals.Balance != 70_000 || f.balance(t) != 70_000 { t.Fatalf("expected 70000, got %d", res.Totals.Balance) }

    txs, _ := f.svc.List(ctx, f.user, transaction.Filter{})
    if len(txs) != 2 { t.Fatalf("rejected write must not appear in the log, got %d rows", len(txs)) }
    if n, err := f.svc.Count(ctx, f.user, transaction.Filter{Limit: 1}); err != nil || n != 2 { t.Fatalf("count: %d %v", n, err) }
    if _, err := f.svc.Count(ctx, f.user, transaction.Filter{Offset: -1}); !errors.Is(err, errs.ErrValidation) { t.Fatalf("negative offset: %v", err) }
    if f.notes.bySeverity(ledger.SeveritySuccess) != 2 { t.Fatalf("expected 2 success notifications") }
}

func TestSubmit_ExpenseToExactlyZero(t *testing.T) {
    f := setup(t, 0)
    if _, err := f.svc.Submit(context.Background(), f.user, f.req(f.expense, 100_000)); err != nil {
        t.Fatalf("draining a wallet to zero must be allowed: %v", err)
    }
    if f.notes.bySeverity(ledger.SeverityWarning) != 1 { t.Fatalf("balance 0 is at the threshold 0, expected a warning") }
}

func TestSubmit_Validation(t *testing.T) {
    f := setup(t, 0)
    ctx := context.Background()
    cases := []struct {
        name string
        user uuid.UUID
        req  ledger.SubmitRequest
        want error
    }{
        {"zero amount", f.user, f.req(f.expense, 0), errs.ErrValidation},
        {"missing category", f.user, ledger.SubmitRequest{WalletID: f.wallet.ID, AmountMinor: 1}, errs.ErrValidation},
        {"unknown wallet", f.user, ledger.SubmitRequest{WalletID: uuid.New(), CategoryID: f.expense.ID, AmountMinor: 1}, errs.ErrNotFound},
        {"unknown category", f.user, ledger.SubmitRequest{WalletID: f.wallet.ID, CategoryID: uuid.New(), AmountMinor: 1}, errs.ErrNotFound},
        {"other user", uuid.New(), f.req(f.expense, 1), errs.ErrNotFound},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            _, err := f.svc.Submit(ctx, tc.user, tc.req)
            if !errors.Is(err, tc.want) { t.Fatalf("expected %v, got %v", tc.want, err) }
        })
    }
}

func TestSubmit_IdempotentReplay(t *testing.T) {
    f := setup(t, 0)
    ctx := context.Background()
    req := f.req(f.expense, 20_000)
    req.ClientRef = "offline-1700000000000-abc123"

    first, err := f.svc.Submit(ctx, f.user, req)
    if err != nil || first.Replayed { t.Fatalf("first submit: %v replayed=%v", err, first.Replayed) }
    // the acknowledgement was lost; the client resubmits the same item
    second, err := f.svc.Submit(ctx, f.user, req)
    if err != nil { t.Fatalf("replay: %v", err) }
    if !second.Replayed || second.Transaction.ID != first.Transaction.ID {
        t.Fatalf("expected replay of %s, got %+v", first.Transaction.ID, second)
    }
    if second.Totals.Balance != 80_000 { t.Fatalf("replay totals: %d", second.Totals.Balance) }
    txs, _ := f.svc.List(ctx, f.user, transaction.Filter{})
    if len(txs) != 1 { t.Fatalf("expected 1 row, got %d", len(txs)) }
    if f.notes.bySeverity(ledger.SeveritySuccess) != 1 { t.Fatalf("replay must not notify again") }

    req.AmountMinor = 25_000
    if _, err := f.svc.Submit(ctx, f.user, req); !errors.Is(err, errs.ErrIdempotencyMismatch) {
        t.Fatalf("expected idempotency mismatch, got %v", err)
    }
}

func TestSubmit_LowBalanceWarning(t *testing.T) {
    f := setup(t, 60_000)
    ctx := context.Background()
    if _, err := f.svc.Submit(ctx, f.user, f.req(f.expense, 30_000)); err != nil { t.Fatal(err) }
    if f.notes.bySeverity(ledger.SeverityWarning) != 0 { t.Fatalf("70000 is above the threshold") }
    if _, err := f.svc.Submit(ctx, f.user, f.req(f.expense, 10_000)); err != nil { t.Fatal(err) }
    if f.notes.bySeverity(ledger.SeverityWarning) != 1 { t.Fatalf("60000 is at the threshold, expected a warning") }
    // the check follows the post-write balance, whatever the direction
    if _, err := f.svc.Submit(ctx, f.user, f.req(f.expense, 20_000)); err != nil { t.Fatal(err) }
    if _, err := f.svc.Submit(ctx, f.user, f.req(f.income, 10_000)); err != nil { t.Fatal(err) }
    if f.notes.bySeverity(ledger.SeverityWarning) != 3 { t.Fatalf("50000 after an income is still low, expected a warning") }
    if _, err := f.svc.Submit(ctx, f.user, f.req(f.income, 40_000)); err != nil { t.Fatal(err) }
    if f.notes.bySeverity(ledger.SeverityWarning) != 3 { t.Fatalf("90000 is above the threshold") }
}

func TestSubmit_NotificationFailureDoesNotFailWrite(t *testing.T) {
    f := setup(t, 0)
    f.notes.drop = true
    if _, err := f.svc.Submit(context.Background(), f.user, f.req(f.expense, 1_000)); err != nil {
        t.Fatalf("write must succeed when notifications are dropped: %v", err)
    }
    if f.balance(t) != 99_000 { t.Fatalf("write not committed") }
}

// flakyStore fails the first n units of work with a serialization error.
type flakyStore struct {
    inner transaction.Store
    fails int32
    calls int32
}

func (s *flakyStore) WithinSerializable(ctx context.Context, fn func(transaction.Tx) error) error {
    atomic.AddInt32(&s.calls, 1)
    if atomic.AddInt32(&s.fails, -1) >= 0 {
        return fmt.Errorf("%w: injected", errs.ErrSerialization)
    }
    return s.inner.WithinSerializable(ctx, fn)
}

func TestSubmit_RetriesSerializationFailures(t *testing.T) {
    f := setup(t, 0)
    fs := &flakyStore{inner: f.store, fails: 2}
    svc := transaction.New(fs, f.store, f.notes, transaction.Options{Retry: retry.Policy{MaxRetries: 2}}, testLogger())
    if _, err := svc.Submit(context.Background(), f.user, f.req(f.expense, 1_000)); err != nil {
        t.Fatalf("expected success within the retry budget: %v", err)
    }
    if fs.calls != 3 { t.Fatalf("expected 3 attempts, got %d", fs.calls) }
}

func TestSubmit_ConflictWhenBudgetExhausted(t *testing.T) {
    f := setup(t, 0)
    fs := &flakyStore{inner: f.store, fails: 3}
    svc := transaction.New(fs, f.store, f.notes, transaction.Options{Retry: retry.Policy{MaxRetries: 2}}, testLogger())
    _, err := svc.Submit(context.Background(), f.user, f.req(f.expense, 1_000))
    if !errors.Is(err, errs.ErrConflict) { t.Fatalf("expected conflict, got %v", err) }
    if f.balance(t) != 100_000 { t.Fatalf("conflicted write must not commit") }
    if len(f.notes.items) != 0 { t.Fatalf("no notifications for failed writes") }
}

func TestSubmit_ConcurrentExpensesNeverOverdraw(t *testing.T) {
    f := setup(t, 0)
    ctx := context.Background()
    const n = 12
    var committed, rejected int32
    var wg sync.WaitGroup
    start := make(chan struct{})
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            <-start
            _, err := f.svc.Submit(ctx, f.user, f.req(f.expense, 30_000))
            switch {
            case err == nil:
                atomic.AddInt32(&committed, 1)
            case errors.Is(err, errs.ErrInsufficientFunds), errors.Is(err, errs.ErrConflict):
                atomic.AddInt32(&rejected, 1)
            default:
                t.Errorf("unexpected error: %v", err)
            }
        }()
    }
    close(start)
    wg.Wait()
    if committed > 3 { t.Fatalf("wallet of 100000 can afford at most 3 expenses of 30000, %d committed", committed) }
    if committed+rejected != n { t.Fatalf("lost outcomes: %d + %d != %d", committed, rejected, n) }
    if b := f.balance(t); b < 0 || b != 100_000-int64(committed)*30_000 {
        t.Fatalf("balance %d inconsistent with %d commits", b, committed)
    }
}

func TestSubmit_TwoRacingExpensesOnlyOneFits(t *testing.T) {
    f := setup(t, 0)
    ctx := context.Background()
    var wg sync.WaitGroup
    results := make([]error, 2)
    for i := range results {
        wg.Add(1)
        go func(i int) { defer wg.Done(); _, results[i] = f.svc.Submit(ctx, f.user, f.req(f.expense, 60_000)) }(i)
    }
    wg.Wait()
    ok := 0
    for _, err := range results { if err == nil { ok++ } }
    if ok != 1 { t.Fatalf("exactly one expense should commit, got %d (%v)", ok, results) }
    if f.balance(t) != 40_000 { t.Fatalf("expected 40000, got %d", f.balance(t)) }
}
