package memory

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/transaction"
)

func seed(t *testing.T) (*Store, uuid.UUID, ledger.Wallet, ledger.Category) {
    t.Helper()
    s := New()
    user := uuid.New()
    s.SeedUser(ledger.User{ID: user, Currency: "IDR"})
    w := ledger.Wallet{ID: uuid.New(), UserID: user, Name: "Cash", Kind: ledger.WalletKindCash, InitialBalance: ledger.Amount("IDR", 100_000), CreatedAt: time.Now()}
    c := ledger.Category{ID: uuid.New(), UserID: user, Name: "Food", Direction: ledger.DirectionExpense}
    s.SeedWallet(w)
    s.SeedCategory(c)
    return s, user, w, c
}

func insert(ctx context.Context, s *Store, user uuid.UUID, w ledger.Wallet, c ledger.Category, amount int64, ref string) error {
    return s.WithinSerializable(ctx, func(tx transaction.Tx) error {
        row := ledger.SubmitRequest{WalletID: w.ID, CategoryID: c.ID, AmountMinor: amount, Date: time.Now(), ClientRef: ref}.
            Draft(user, "IDR", c.Direction, time.Now())
        return tx.InsertTransaction(ctx, row)
    })
}

func TestWithinSerializable_DetectsConcurrentWrite(t *testing.T) {
    s, user, w, c := seed(t)
    ctx := context.Background()
    err := s.WithinSerializable(ctx, func(tx transaction.Tx) error {
        if _, _, err := tx.WalletSums(ctx, w.ID); err != nil { return err }
        // a second writer commits against the same wallet in between
        if err := insert(ctx, s, user, w, c, 10_000, ""); err != nil { t.Fatalf("inner insert: %v", err) }
        row := ledger.SubmitRequest{WalletID: w.ID, CategoryID: c.ID, AmountMinor: 5_000}.Draft(user, "IDR", c.Direction, time.Now())
        return tx.InsertTransaction(ctx, row)
    })
    if !errors.Is(err, errs.ErrSerialization) {
        t.Fatalf("expected serialization failure, got %v", err)
    }
    totals, _ := s.WalletTotals(ctx, user, w.ID)
    if totals.Balance != 90_000 {
        t.Fatalf("only the inner write should have committed, balance=%d", totals.Balance)
    }
}

func TestWithinSerializable_DuplicateClientRef(t *testing.T) {
    s, user, w, c := seed(t)
    ctx := context.Background()
    if err := insert(ctx, s, user, w, c, 1_000, "offline-1"); err != nil { t.Fatal(err) }
    c2 := ledger.Category{ID: uuid.New(), UserID: user, Name: "Other", Direction: ledger.DirectionExpense}
    s.SeedCategory(c2)
    // a different wallet id is not read, so only the ref check can catch this
    err := s.WithinSerializable(ctx, func(tx transaction.Tx) error {
        row := ledger.SubmitRequest{CategoryID: c2.ID, AmountMinor: 1_000, ClientRef: "offline-1"}.Draft(user, "IDR", c2.Direction, time.Now())
        row.WalletID = nil
        return tx.InsertTransaction(ctx, row)
    })
    if !errors.Is(err, errs.ErrSerialization) {
        t.Fatalf("expected serialization failure for duplicate ref, got %v", err)
    }
}

func TestWallets_UniqueNameAndDetachOnDelete(t *testing.T) {
    s, user, w, c := seed(t)
    ctx := context.Background()
    dup := ledger.Wallet{ID: uuid.New(), UserID: user, Name: "  cash ", InitialBalance: ledger.Amount("IDR", 0)}
    if _, err := s.CreateWallet(ctx, dup); !errors.Is(err, errs.ErrConflict) {
        t.Fatalf("expected conflict on duplicate name, got %v", err)
    }
    if err := insert(ctx, s, user, w, c, 1_000, ""); err != nil { t.Fatal(err) }
    if err := s.DeleteWallet(ctx, user, w.ID); err != nil { t.Fatal(err) }
    txs, _ := s.ListTransactions(ctx, user, transaction.Filter{})
    if len(txs) != 1 || txs[0].WalletID != nil {
        t.Fatalf("transaction should survive detached: %+v", txs)
    }
    if _, err := s.GetWallet(ctx, user, w.ID); !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("expected not found, got %v", err)
    }
}

func TestListTransactions_OffsetAndCount(t *testing.T) {
    s, user, w, c := seed(t)
    ctx := context.Background()
    for i := 0; i < 3; i++ {
        if err := insert(ctx, s, user, w, c, int64(1_000*(i+1)), ""); err != nil { t.Fatal(err) }
    }
    all, _ := s.ListTransactions(ctx, user, transaction.Filter{})
    page, _ := s.ListTransactions(ctx, user, transaction.Filter{Limit: 1, Offset: 1})
    if len(page) != 1 || page[0].ID != all[1].ID { t.Fatalf("offset 1 should return the second newest, got %+v", page) }
    if rest, _ := s.ListTransactions(ctx, user, transaction.Filter{Offset: 5}); len(rest) != 0 {
        t.Fatalf("offset past the end should be empty, got %d", len(rest))
    }
    n, err := s.CountTransactions(ctx, user, transaction.Filter{Limit: 1, Offset: 2})
    if err != nil || n != 3 { t.Fatalf("count ignores paging: %d, %v", n, err) }
    other := uuid.New()
    if n, _ := s.CountTransactions(ctx, user, transaction.Filter{WalletID: &other}); n != 0 {
        t.Fatalf("expected no matches for another wallet, got %d", n)
    }
}

func TestUpdateWallet_RejectsNegativeDerivedBalance(t *testing.T) {
    s, user, w, c := seed(t)
    ctx := context.Background()
    if err := insert(ctx, s, user, w, c, 80_000, ""); err != nil { t.Fatal(err) }
    if _, err := s.UpdateWallet(ctx, w, -50_000); !errors.Is(err, errs.ErrInsufficientFunds) {
        t.Fatalf("expected insufficient funds, got %v", err)
    }
}

func TestUpdateWallet_AdjustmentsAccumulate(t *testing.T) {
    s, _, w, _ := seed(t)
    ctx := context.Background()
    // a stale copy of the wallet must not overwrite a committed adjustment
    stale := w
    if _, err := s.UpdateWallet(ctx, w, 50_000); err != nil { t.Fatal(err) }
    got, err := s.UpdateWallet(ctx, stale, 50_000)
    if err != nil { t.Fatal(err) }
    if ledger.Minor(got.InitialBalance) != 200_000 { t.Fatalf("initial = %d, want 200000", ledger.Minor(got.InitialBalance)) }
}

func TestCategories_InUse(t *testing.T) {
    s, user, w, c := seed(t)
    ctx := context.Background()
    if err := insert(ctx, s, user, w, c, 1_000, ""); err != nil { t.Fatal(err) }
    if err := s.DeleteCategory(ctx, user, c.ID); !errors.Is(err, errs.ErrInUse) {
        t.Fatalf("expected in use, got %v", err)
    }
    if err := s.DeleteCategory(ctx, uuid.New(), c.ID); !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("expected not found for other user, got %v", err)
    }
}

func TestNotifications_ListAndMark(t *testing.T) {
    s := New()
    ctx := context.Background()
    user := uuid.New()
    for i := 0; i < 3; i++ {
        _ = s.CreateNotification(ctx, ledger.Notification{ID: uuid.New(), UserID: user, Title: "t", Message: "m", Severity: ledger.SeverityInfo})
    }
    got, _ := s.ListNotifications(ctx, user, 2)
    if len(got) != 2 { t.Fatalf("expected 2, got %d", len(got)) }
    if err := s.MarkNotificationRead(ctx, uuid.New(), got[0].ID); !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("other user must not mark: %v", err)
    }
    if err := s.MarkNotificationRead(ctx, user, got[0].ID); err != nil { t.Fatal(err) }
    n, _ := s.MarkAllNotificationsRead(ctx, user)
    if n != 2 { t.Fatalf("expected 2 changed, got %d", n) }
}
