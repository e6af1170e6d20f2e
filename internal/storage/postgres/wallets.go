package postgres

import (
    "context"
    "errors"
    "strings"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

const selectWallet = `
    select id, user_id, name, kind, currency, initial_balance_minor, created_at
    from wallets`

func scanWallet(row pgx.Row) (ledger.Wallet, error) {
    var w ledger.Wallet
    var kind, curr string
    var minor int64
    err := row.Scan(&w.ID, &w.UserID, &w.Name, &kind, &curr, &minor, &w.CreatedAt)
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Wallet{}, errs.ErrNotFound }
    if err != nil { return ledger.Wallet{}, err }
    w.Kind = ledger.WalletKind(kind)
    w.InitialBalance = ledger.Amount(strings.TrimSpace(curr), minor)
    return w, nil
}

func insertWallet(ctx context.Context, q queryer, w ledger.Wallet) error {
    _, err := q.Exec(ctx, `
        insert into wallets (id, user_id, name, kind, currency, initial_balance_minor, created_at)
        values ($1,$2,$3,$4,$5,$6,$7)
    `, w.ID, w.UserID, w.Name, string(w.Kind), w.InitialBalance.Curr().Code(), ledger.Minor(w.InitialBalance), w.CreatedAt)
    return err
}

// ListWallets returns a user's wallets ordered by creation time.
func (s *Store) ListWallets(ctx context.Context, userID uuid.UUID) ([]ledger.Wallet, error) {
    rows, err := s.pool.Query(ctx, selectWallet+` where user_id = $1 order by created_at, name`, userID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Wallet, 0)
    for rows.Next() {
        w, err := scanWallet(rows)
        if err != nil { return nil, err }
        out = append(out, w)
    }
    return out, rows.Err()
}

// GetWallet fetches a single wallet by id for a user.
func (s *Store) GetWallet(ctx context.Context, userID, walletID uuid.UUID) (ledger.Wallet, error) {
    return scanWallet(s.pool.QueryRow(ctx, selectWallet+` where id = $1 and user_id = $2`, walletID, userID))
}

// WalletTotals derives a wallet's totals from its committed transactions.
func (s *Store) WalletTotals(ctx context.Context, userID, walletID uuid.UUID) (ledger.Totals, error) {
    w, err := s.GetWallet(ctx, userID, walletID)
    if err != nil { return ledger.Totals{}, err }
    income, expense, err := walletSums(ctx, s.pool, walletID)
    if err != nil { return ledger.Totals{}, err }
    return ledger.FromSums(ledger.Minor(w.InitialBalance), income, expense), nil
}

// CreateWallet inserts a wallet row. Duplicate names map to errs.ErrConflict.
func (s *Store) CreateWallet(ctx context.Context, w ledger.Wallet) (ledger.Wallet, error) {
    if err := insertWallet(ctx, s.pool, w); err != nil { return ledger.Wallet{}, classify(err) }
    return w, nil
}

// UpdateWallet updates name and kind and adds adjustMinor to the stored
// initial balance in a serializable transaction that re-derives the balance first.
func (s *Store) UpdateWallet(ctx context.Context, w ledger.Wallet, adjustMinor int64) (ledger.Wallet, error) {
    var out ledger.Wallet
    err := s.serializable(ctx, func(tx pgx.Tx) error {
        cur, err := scanWallet(tx.QueryRow(ctx, selectWallet+` where id = $1 and user_id = $2`, w.ID, w.UserID))
        if err != nil { return err }
        initial := ledger.Minor(cur.InitialBalance) + adjustMinor
        if initial < 0 { return errs.ErrInsufficientFunds }
        income, expense, err := walletSums(ctx, tx, w.ID)
        if err != nil { return err }
        if ledger.FromSums(initial, income, expense).Balance < 0 { return errs.ErrInsufficientFunds }
        if _, err := tx.Exec(ctx, `
            update wallets set name=$1, kind=$2, initial_balance_minor=initial_balance_minor + $3
            where id=$4 and user_id=$5
        `, w.Name, string(w.Kind), adjustMinor, w.ID, w.UserID); err != nil {
            return err
        }
        w.InitialBalance = ledger.Amount(cur.InitialBalance.Curr().Code(), initial)
        w.CreatedAt = cur.CreatedAt
        out = w
        return nil
    })
    if err != nil { return ledger.Wallet{}, err }
    return out, nil
}

// DeleteWallet removes a wallet; the foreign key detaches its transactions.
func (s *Store) DeleteWallet(ctx context.Context, userID, walletID uuid.UUID) error {
    ct, err := s.pool.Exec(ctx, `delete from wallets where id=$1 and user_id=$2`, walletID, userID)
    if err != nil { return err }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}
