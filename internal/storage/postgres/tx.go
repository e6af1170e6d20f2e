package postgres

import (
    "context"
    "errors"
    "fmt"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/transaction"
)

// SQLSTATE codes the writer can recover from by rerunning the unit of work.
const (
    codeSerializationFailure = "40001"
    codeDeadlockDetected     = "40P01"
    codeUniqueViolation      = "23505"
)

// classify maps postgres errors onto the errs taxonomy.
func classify(err error) error {
    if err == nil { return nil }
    var pgErr *pgconn.PgError
    if !errors.As(err, &pgErr) { return err }
    switch pgErr.Code {
    case codeSerializationFailure, codeDeadlockDetected:
        return fmt.Errorf("%w: %s", errs.ErrSerialization, pgErr.Message)
    case codeUniqueViolation:
        return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.ConstraintName)
    }
    return err
}

// WithinSerializable runs fn in a SERIALIZABLE transaction and commits it.
func (s *Store) WithinSerializable(ctx context.Context, fn func(transaction.Tx) error) error {
    return s.serializable(ctx, func(tx pgx.Tx) error { return fn(&Tx{tx: tx}) })
}

func (s *Store) serializable(ctx context.Context, fn func(pgx.Tx) error) error {
    tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
    if err != nil { return classify(err) }
    defer func() { _ = tx.Rollback(ctx) }()
    if err := fn(tx); err != nil { return classify(err) }
    return classify(tx.Commit(ctx))
}

// Tx wraps a pgx.Tx and implements transaction.Tx.
type Tx struct{ tx pgx.Tx }

func (t *Tx) Category(ctx context.Context, userID, categoryID uuid.UUID) (ledger.Category, error) {
    return scanCategory(t.tx.QueryRow(ctx, selectCategory+` where id = $1 and user_id = $2`, categoryID, userID))
}

func (t *Tx) Wallet(ctx context.Context, userID, walletID uuid.UUID) (ledger.Wallet, error) {
    return scanWallet(t.tx.QueryRow(ctx, selectWallet+` where id = $1 and user_id = $2`, walletID, userID))
}

func (t *Tx) WalletSums(ctx context.Context, walletID uuid.UUID) (int64, int64, error) {
    return walletSums(ctx, t.tx, walletID)
}

func (t *Tx) TransactionByClientRef(ctx context.Context, userID uuid.UUID, ref string) (ledger.Transaction, bool, error) {
    tx, err := scanTransaction(t.tx.QueryRow(ctx, selectTransaction+` where t.user_id = $1 and t.client_ref = $2`, userID, ref))
    if errors.Is(err, errs.ErrNotFound) { return ledger.Transaction{}, false, nil }
    if err != nil { return ledger.Transaction{}, false, err }
    return tx, true, nil
}

func (t *Tx) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
    err := insertTransaction(ctx, t.tx, tx)
    var pgErr *pgconn.PgError
    // a concurrent commit of the same client ref: rerun and replay it
    if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == "transactions_user_client_ref_uq" {
        return fmt.Errorf("%w: client ref %q committed concurrently", errs.ErrSerialization, tx.ClientRef)
    }
    return err
}

// queryer is satisfied by both the pool and pgx.Tx.
type queryer interface {
    Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
    QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
    Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// walletSums aggregates signed totals by category direction for one wallet.
func walletSums(ctx context.Context, q queryer, walletID uuid.UUID) (income, expense int64, err error) {
    err = q.QueryRow(ctx, `
        select coalesce(sum(t.amount_minor) filter (where c.direction = 'income'), 0),
               coalesce(sum(t.amount_minor) filter (where c.direction = 'expense'), 0)
        from transactions t
        join categories c on c.id = t.category_id
        where t.wallet_id = $1
    `, walletID).Scan(&income, &expense)
    return income, expense, err
}
