package postgres

import (
    "context"
    "errors"
    "strconv"
    "strings"

    "github.com/goccy/go-json"
    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/transaction"
)

const selectTransaction = `
    select t.id, t.user_id, t.wallet_id, t.category_id, c.direction, t.amount_minor, t.currency,
           t.date, t.created_at, t.product_name, t.note, t.quantity, t.unit_price_minor, t.promo, t.client_ref
    from transactions t
    join categories c on c.id = t.category_id`

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
    var t ledger.Transaction
    var dir, curr string
    var minor int64
    var promo []byte
    var ref *string
    err := row.Scan(&t.ID, &t.UserID, &t.WalletID, &t.CategoryID, &dir, &minor, &curr,
        &t.Date, &t.CreatedAt, &t.ProductName, &t.Note, &t.Quantity, &t.UnitPriceMinor, &promo, &ref)
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Transaction{}, errs.ErrNotFound }
    if err != nil { return ledger.Transaction{}, err }
    t.Direction = ledger.Direction(dir)
    t.Amount = ledger.Amount(strings.TrimSpace(curr), minor)
    if len(promo) > 0 {
        var p ledger.Promo
        if err := json.Unmarshal(promo, &p); err == nil { t.Promo = &p }
    }
    if ref != nil { t.ClientRef = *ref }
    return t, nil
}

func insertTransaction(ctx context.Context, q queryer, t ledger.Transaction) error {
    var promo []byte
    if t.Promo != nil {
        b, err := json.Marshal(t.Promo)
        if err != nil { return err }
        promo = b
    }
    var ref *string
    if t.ClientRef != "" { ref = &t.ClientRef }
    _, err := q.Exec(ctx, `
        insert into transactions (id, user_id, wallet_id, category_id, amount_minor, currency, date, created_at,
                                  product_name, note, quantity, unit_price_minor, promo, client_ref)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, t.ID, t.UserID, t.WalletID, t.CategoryID, t.AmountMinor(), t.Amount.Curr().Code(), t.Date, t.CreatedAt,
        t.ProductName, t.Note, t.Quantity, t.UnitPriceMinor, promo, ref)
    return err
}

// ListTransactions returns a user's transactions newest first (by effective date).
func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, f transaction.Filter) ([]ledger.Transaction, error) {
    var b strings.Builder
    b.WriteString(selectTransaction)
    args := filterWhere(&b, userID, f)
    b.WriteString(` order by t.date desc, t.id desc`)
    if f.Limit > 0 {
        args = append(args, f.Limit)
        b.WriteString(` limit $` + strconv.Itoa(len(args)))
    }
    if f.Offset > 0 {
        args = append(args, f.Offset)
        b.WriteString(` offset $` + strconv.Itoa(len(args)))
    }
    rows, err := s.pool.Query(ctx, b.String(), args...)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Transaction, 0)
    for rows.Next() {
        t, err := scanTransaction(rows)
        if err != nil { return nil, err }
        out = append(out, t)
    }
    return out, rows.Err()
}

// CountTransactions counts the matches of f, ignoring Limit and Offset.
func (s *Store) CountTransactions(ctx context.Context, userID uuid.UUID, f transaction.Filter) (int, error) {
    var b strings.Builder
    b.WriteString(`select count(*) from transactions t`)
    args := filterWhere(&b, userID, f)
    var n int
    err := s.pool.QueryRow(ctx, b.String(), args...).Scan(&n)
    return n, err
}

func filterWhere(b *strings.Builder, userID uuid.UUID, f transaction.Filter) []any {
    b.WriteString(` where t.user_id = $1`)
    args := []any{userID}
    if f.WalletID != nil {
        args = append(args, *f.WalletID)
        b.WriteString(` and t.wallet_id = $` + strconv.Itoa(len(args)))
    }
    if f.From != nil {
        args = append(args, *f.From)
        b.WriteString(` and t.date >= $` + strconv.Itoa(len(args)))
    }
    if f.To != nil {
        args = append(args, *f.To)
        b.WriteString(` and t.date <= $` + strconv.Itoa(len(args)))
    }
    return args
}

// GetTransaction returns a transaction by id for a user.
func (s *Store) GetTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error) {
    return scanTransaction(s.pool.QueryRow(ctx, selectTransaction+` where t.id = $1 and t.user_id = $2`, txID, userID))
}
