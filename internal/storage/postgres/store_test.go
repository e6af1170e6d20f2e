package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/walletledger/internal/errs"
	"github.com/tinoosan/walletledger/internal/ledger"
	"github.com/tinoosan/walletledger/internal/retry"
	"github.com/tinoosan/walletledger/internal/service/transaction"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

// freshStore applies the init migration and truncates all tables.
func freshStore(t *testing.T) *Store {
	t.Helper()
	dsn := getTestDSN(t)
	s := mustOpen(t, dsn)
	t.Cleanup(s.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	b, err := os.ReadFile(filepath.Join(repoRoot, "db", "migrations", "0001_init.sql"))
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `truncate table notifications, transactions, categories, wallets, users cascade`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func seedLedger(t *testing.T, s *Store) (uuid.UUID, ledger.Wallet, ledger.Category, ledger.Category) {
	t.Helper()
	ctx := context.Background()
	user := uuid.New()
	if _, err := s.EnsureUser(ctx, ledger.User{ID: user, Currency: "IDR"}); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	w := ledger.Wallet{ID: uuid.New(), UserID: user, Name: "Main", Kind: ledger.WalletKindBank, InitialBalance: ledger.Amount("IDR", 100_000), CreatedAt: time.Now().UTC()}
	if _, err := s.CreateWallet(ctx, w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	exp := ledger.Category{ID: uuid.New(), UserID: user, Name: "Food", Direction: ledger.DirectionExpense, Icon: "fa-utensils", CreatedAt: time.Now().UTC()}
	inc := ledger.Category{ID: uuid.New(), UserID: user, Name: "Salary", Direction: ledger.DirectionIncome, Icon: "fa-money-bill", CreatedAt: time.Now().UTC()}
	for _, c := range []ledger.Category{exp, inc} {
		if _, err := s.CreateCategory(ctx, c); err != nil {
			t.Fatalf("create category: %v", err)
		}
	}
	return user, w, exp, inc
}

func writer(s *Store) transaction.Service {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return transaction.New(s, s, nil, transaction.Options{Retry: retry.Policy{MaxRetries: 5, Backoff: retry.Linear(10 * time.Millisecond)}}, l)
}

func TestStore_WriterScenario(t *testing.T) {
	s := freshStore(t)
	user, w, exp, inc := seedLedger(t, s)
	svc := writer(s)
	ctx := context.Background()

	req := func(c ledger.Category, amount int64) ledger.SubmitRequest {
		return ledger.SubmitRequest{WalletID: w.ID, CategoryID: c.ID, AmountMinor: amount, Date: time.Now()}
	}
	if res, err := svc.Submit(ctx, user, req(exp, 40_000)); err != nil || res.Totals.Balance != 60_000 {
		t.Fatalf("expense 40000: %+v %v", res, err)
	}
	if _, err := svc.Submit(ctx, user, req(exp, 70_000)); !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if res, err := svc.Submit(ctx, user, req(inc, 10_000)); err != nil || res.Totals.Balance != 70_000 {
		t.Fatalf("income 10000: %+v %v", res, err)
	}
	tot, err := s.WalletTotals(ctx, user, w.ID)
	if err != nil || tot != (ledger.Totals{Balance: 70_000, Income: 10_000, Expense: 40_000}) {
		t.Fatalf("totals: %+v %v", tot, err)
	}
	page, err := s.ListTransactions(ctx, user, transaction.Filter{WalletID: &w.ID, Limit: 1, Offset: 1})
	if err != nil || len(page) != 1 {
		t.Fatalf("page: %+v %v", page, err)
	}
	n, err := s.CountTransactions(ctx, user, transaction.Filter{WalletID: &w.ID, Limit: 1})
	if err != nil || n != 2 {
		t.Fatalf("count: %d %v", n, err)
	}
}

func TestStore_IdempotentClientRef(t *testing.T) {
	s := freshStore(t)
	user, w, exp, _ := seedLedger(t, s)
	svc := writer(s)
	ctx := context.Background()
	req := ledger.SubmitRequest{WalletID: w.ID, CategoryID: exp.ID, AmountMinor: 5_000, ClientRef: "offline-1-aaaaaa", Promo: &ledger.Promo{Type: ledger.PromoPercent, Value: 10}}
	first, err := svc.Submit(ctx, user, req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.Submit(ctx, user, req)
	if err != nil || !second.Replayed || second.Transaction.ID != first.Transaction.ID {
		t.Fatalf("replay: %+v %v", second, err)
	}
	if second.Transaction.Promo == nil || second.Transaction.Promo.Value != 10 {
		t.Fatalf("promo not round-tripped: %+v", second.Transaction.Promo)
	}
	txs, _ := s.ListTransactions(ctx, user, transaction.Filter{})
	if len(txs) != 1 {
		t.Fatalf("expected 1 row, got %d", len(txs))
	}
}

func TestStore_ConcurrentExpensesSerializable(t *testing.T) {
	s := freshStore(t)
	user, w, exp, _ := seedLedger(t, s)
	svc := writer(s)
	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]error, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Submit(ctx, user, ledger.SubmitRequest{WalletID: w.ID, CategoryID: exp.ID, AmountMinor: 30_000})
		}(i)
	}
	wg.Wait()
	committed := 0
	for _, err := range results {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, errs.ErrInsufficientFunds), errors.Is(err, errs.ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	tot, _ := s.WalletTotals(ctx, user, w.ID)
	if committed > 3 || tot.Balance < 0 || tot.Balance != 100_000-int64(committed)*30_000 {
		t.Fatalf("committed=%d balance=%d", committed, tot.Balance)
	}
}

func TestStore_ConcurrentWalletAdjustmentsAccumulate(t *testing.T) {
	s := freshStore(t)
	user, w, _, _ := seedLedger(t, s)
	ctx := context.Background()
	policy := retry.Policy{MaxRetries: 10, Backoff: retry.Linear(5 * time.Millisecond)}
	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = policy.Do(ctx, func(int) error {
				_, err := s.UpdateWallet(ctx, w, 25_000)
				return err
			})
		}(i)
	}
	wg.Wait()
	for _, err := range results {
		if err != nil {
			t.Fatalf("adjust: %v", err)
		}
	}
	got, err := s.GetWallet(ctx, user, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ledger.Minor(got.InitialBalance) != 200_000 {
		t.Fatalf("initial = %d, want 200000", ledger.Minor(got.InitialBalance))
	}
}

func TestStore_SetUserCurrency(t *testing.T) {
	s := freshStore(t)
	user, _, _, _ := seedLedger(t, s)
	ctx := context.Background()
	u, err := s.SetUserCurrency(ctx, user, "USD")
	if err != nil || u.Currency != "USD" {
		t.Fatalf("set: %+v %v", u, err)
	}
	if got, _ := s.GetUser(ctx, user); got.Currency != "USD" {
		t.Fatalf("expected USD, got %q", got.Currency)
	}
	fresh := uuid.New()
	if u, err := s.SetUserCurrency(ctx, fresh, "IDR"); err != nil || u.ID != fresh {
		t.Fatalf("unknown user should be created: %+v %v", u, err)
	}
}

func TestStore_UpdateCategory(t *testing.T) {
	s := freshStore(t)
	user, _, exp, inc := seedLedger(t, s)
	ctx := context.Background()
	got, err := s.UpdateCategory(ctx, ledger.Category{ID: exp.ID, UserID: user, Name: "Groceries"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Groceries" || got.Icon != exp.Icon || got.Direction != ledger.DirectionExpense {
		t.Fatalf("unexpected category %+v", got)
	}
	if _, err := s.UpdateCategory(ctx, ledger.Category{ID: exp.ID, UserID: user, Direction: ledger.DirectionIncome}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for direction change, got %v", err)
	}
	other, err := s.CreateCategory(ctx, ledger.Category{ID: uuid.New(), UserID: user, Name: "Rent", Direction: ledger.DirectionExpense, Icon: "fa-house", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.UpdateCategory(ctx, ledger.Category{ID: other.ID, UserID: user, Name: "groceries"}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.UpdateCategory(ctx, ledger.Category{ID: inc.ID, UserID: uuid.New(), Name: "x"}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_DeleteWalletDetachesAndCategoryInUse(t *testing.T) {
	s := freshStore(t)
	user, w, exp, _ := seedLedger(t, s)
	ctx := context.Background()
	if _, err := writer(s).Submit(ctx, user, ledger.SubmitRequest{WalletID: w.ID, CategoryID: exp.ID, AmountMinor: 1_000}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.DeleteCategory(ctx, user, exp.ID); !errors.Is(err, errs.ErrInUse) {
		t.Fatalf("expected in use, got %v", err)
	}
	if err := s.DeleteWallet(ctx, user, w.ID); err != nil {
		t.Fatalf("delete wallet: %v", err)
	}
	txs, _ := s.ListTransactions(ctx, user, transaction.Filter{})
	if len(txs) != 1 || txs[0].WalletID != nil {
		t.Fatalf("expected detached transaction, got %+v", txs)
	}
	dup := ledger.Wallet{ID: uuid.New(), UserID: user, Name: "x", Kind: ledger.WalletKindCash, InitialBalance: ledger.Amount("IDR", 0), CreatedAt: time.Now()}
	if _, err := s.CreateWallet(ctx, dup); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup.ID = uuid.New()
	dup.Name = "X"
	if _, err := s.CreateWallet(ctx, dup); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}
}
