// Package transaction implements the authoritative write path for wallet
// transactions: isolated balance check, insert, bounded retry on
// serialization failures, and best-effort notifications after commit.
package transaction

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/retry"
)

// Tx is the unit of work the writer runs inside one serializable transaction.
// Every read is scoped to the owning user.
type Tx interface {
    Category(ctx context.Context, userID, categoryID uuid.UUID) (ledger.Category, error)
    Wallet(ctx context.Context, userID, walletID uuid.UUID) (ledger.Wallet, error)
    // WalletSums aggregates the committed income and expense totals of a wallet.
    WalletSums(ctx context.Context, walletID uuid.UUID) (income, expense int64, err error)
    TransactionByClientRef(ctx context.Context, userID uuid.UUID, ref string) (ledger.Transaction, bool, error)
    InsertTransaction(ctx context.Context, t ledger.Transaction) error
}

// Store opens serializable units of work. Implementations return an error
// wrapping errs.ErrSerialization when the unit lost a race and may be rerun.
type Store interface {
    WithinSerializable(ctx context.Context, fn func(Tx) error) error
}

// Repo defines read operations needed by the service.
type Repo interface {
    ListTransactions(ctx context.Context, userID uuid.UUID, f Filter) ([]ledger.Transaction, error)
    // CountTransactions counts the matches of f ignoring Limit and Offset.
    CountTransactions(ctx context.Context, userID uuid.UUID, f Filter) (int, error)
    GetTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error)
}

// Notifier accepts notifications for asynchronous delivery. It must not block.
type Notifier interface {
    Enqueue(n ledger.Notification) bool
}

// Filter narrows transaction listings. Dates are effective dates, inclusive.
type Filter struct {
    WalletID *uuid.UUID
    From     *time.Time
    To       *time.Time
    Limit    int
    // Offset skips that many matches, newest first.
    Offset int
}

// Result is the outcome of a successful Submit.
type Result struct {
    Transaction ledger.Transaction
    // Totals are the wallet totals including Transaction.
    Totals ledger.Totals
    // Replayed is true when the idempotency key matched an earlier commit.
    Replayed bool
}

// Options tunes the writer.
type Options struct {
    LowBalanceThresholdMinor int64
    Retry                    retry.Policy
    Now                      func() time.Time
}

// Service exposes the transaction write path and its reads.
type Service interface {
    Submit(ctx context.Context, userID uuid.UUID, req ledger.SubmitRequest) (Result, error)
    List(ctx context.Context, userID uuid.UUID, f Filter) ([]ledger.Transaction, error)
    // Count reports how many transactions match f, for pagination.
    Count(ctx context.Context, userID uuid.UUID, f Filter) (int, error)
    Get(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error)
}

type service struct {
    store  Store
    repo   Repo
    notify Notifier
    opts   Options
    log    *slog.Logger
}

func New(store Store, repo Repo, notify Notifier, opts Options, logger *slog.Logger) Service {
    if opts.Now == nil { opts.Now = time.Now }
    if logger == nil { logger = slog.Default() }
    return &service{store: store, repo: repo, notify: notify, opts: opts, log: logger}
}

// Submit records one transaction. Expenses are rejected with
// errs.ErrInsufficientFunds when they would take the wallet below zero.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, req ledger.SubmitRequest) (Result, error) {
    if userID == uuid.Nil { return Result{}, fmt.Errorf("%w: user is required", errs.ErrValidation) }
    req = req.Normalize(s.opts.Now())
    if err := req.Validate(); err != nil {
        writerAttempts.WithLabelValues("rejected").Inc()
        return Result{}, err
    }

    policy := s.opts.Retry
    policy.Retryable = errs.Retryable
    policy.OnRetry = func(n int, err error) {
        writerRetries.Inc()
        s.log.Debug("transaction write retry", "user_id", userID, "wallet_id", req.WalletID, "retry", n, "err", err)
    }

    var res Result
    err := policy.Do(ctx, func(int) error {
        return s.store.WithinSerializable(ctx, func(tx Tx) error {
            r, err := s.apply(ctx, tx, userID, req)
            if err != nil { return err }
            res = r
            return nil
        })
    })
    if err != nil {
        if errors.Is(err, retry.ErrExhausted) {
            writerAttempts.WithLabelValues("conflict").Inc()
            s.log.Warn("transaction write gave up under contention", "user_id", userID, "wallet_id", req.WalletID, "err", err)
            return Result{}, fmt.Errorf("%w: wallet is busy, retry later", errs.ErrConflict)
        }
        outcome := errs.Code(err)
        if outcome == "" { outcome = "error" }
        writerAttempts.WithLabelValues(outcome).Inc()
        return Result{}, err
    }

    if res.Replayed {
        writerAttempts.WithLabelValues("replayed").Inc()
        return res, nil
    }
    writerAttempts.WithLabelValues("committed").Inc()
    s.notifyCommitted(userID, res)
    return res, nil
}

// apply is one attempt; it must be safe to rerun from scratch.
func (s *service) apply(ctx context.Context, tx Tx, userID uuid.UUID, req ledger.SubmitRequest) (Result, error) {
    if req.ClientRef != "" {
        prev, ok, err := tx.TransactionByClientRef(ctx, userID, req.ClientRef)
        if err != nil { return Result{}, err }
        if ok {
            if !req.SamePayload(prev) { return Result{}, errs.ErrIdempotencyMismatch }
            res := Result{Transaction: prev, Replayed: true}
            if prev.WalletID != nil {
                if res.Totals, err = s.totals(ctx, tx, userID, *prev.WalletID); err != nil { return Result{}, err }
            }
            return res, nil
        }
    }

    cat, err := tx.Category(ctx, userID, req.CategoryID)
    if err != nil { return Result{}, fmt.Errorf("category: %w", err) }
    w, err := tx.Wallet(ctx, userID, req.WalletID)
    if err != nil { return Result{}, fmt.Errorf("wallet: %w", err) }

    income, expense, err := tx.WalletSums(ctx, w.ID)
    if err != nil { return Result{}, err }
    before := ledger.FromSums(ledger.Minor(w.InitialBalance), income, expense)
    p := ledger.Posting{Direction: cat.Direction, AmountMinor: req.AmountMinor}
    if !before.Allows(p) {
        return Result{}, fmt.Errorf("%w: balance %d, amount %d", errs.ErrInsufficientFunds, before.Balance, req.AmountMinor)
    }
    if _, err := ledger.DeriveChecked(before.Balance, []ledger.Posting{p}); err != nil {
        return Result{}, fmt.Errorf("%w: amount would overflow the wallet balance", errs.ErrValidation)
    }

    row := req.Draft(userID, w.InitialBalance.Curr().Code(), cat.Direction, s.opts.Now().UTC())
    if err := tx.InsertTransaction(ctx, row); err != nil { return Result{}, err }
    return Result{Transaction: row, Totals: before.Apply(p)}, nil
}

func (s *service) totals(ctx context.Context, tx Tx, userID, walletID uuid.UUID) (ledger.Totals, error) {
    w, err := tx.Wallet(ctx, userID, walletID)
    if errors.Is(err, errs.ErrNotFound) { return ledger.Totals{}, nil }
    if err != nil { return ledger.Totals{}, err }
    income, expense, err := tx.WalletSums(ctx, w.ID)
    if err != nil { return ledger.Totals{}, err }
    return ledger.FromSums(ledger.Minor(w.InitialBalance), income, expense), nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, f Filter) ([]ledger.Transaction, error) {
    if err := checkFilter(userID, f); err != nil { return nil, err }
    return s.repo.ListTransactions(ctx, userID, f)
}

func (s *service) Count(ctx context.Context, userID uuid.UUID, f Filter) (int, error) {
    if err := checkFilter(userID, f); err != nil { return 0, err }
    return s.repo.CountTransactions(ctx, userID, f)
}

func checkFilter(userID uuid.UUID, f Filter) error {
    if userID == uuid.Nil { return errs.ErrInvalid }
    if f.Limit < 0 { return fmt.Errorf("%w: limit must be >= 0", errs.ErrValidation) }
    if f.Offset < 0 { return fmt.Errorf("%w: offset must be >= 0", errs.ErrValidation) }
    if f.From != nil && f.To != nil && f.From.After(*f.To) {
        return fmt.Errorf("%w: from must not be after to", errs.ErrValidation)
    }
    return nil
}

func (s *service) Get(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error) {
    if userID == uuid.Nil || txID == uuid.Nil { return ledger.Transaction{}, errs.ErrInvalid }
    return s.repo.GetTransaction(ctx, userID, txID)
}
