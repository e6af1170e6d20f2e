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
)

const selectCategory = `
    select id, user_id, name, direction, icon, created_at
    from categories`

func scanCategory(row pgx.Row) (ledger.Category, error) {
    var c ledger.Category
    var dir string
    err := row.Scan(&c.ID, &c.UserID, &c.Name, &dir, &c.Icon, &c.CreatedAt)
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Category{}, errs.ErrNotFound }
    if err != nil { return ledger.Category{}, err }
    c.Direction = ledger.Direction(dir)
    return c, nil
}

func insertCategory(ctx context.Context, q queryer, c ledger.Category) error {
    _, err := q.Exec(ctx, `
        insert into categories (id, user_id, name, direction, icon, created_at)
        values ($1,$2,$3,$4,$5,$6)
    `, c.ID, c.UserID, c.Name, string(c.Direction), c.Icon, c.CreatedAt)
    return err
}

// ListCategories returns a user's categories, income first, then by name.
func (s *Store) ListCategories(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error) {
    rows, err := s.pool.Query(ctx, selectCategory+` where user_id = $1 order by direction desc, lower(name)`, userID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Category, 0)
    for rows.Next() {
        c, err := scanCategory(rows)
        if err != nil { return nil, err }
        out = append(out, c)
    }
    return out, rows.Err()
}

// CreateCategory inserts a category row. Duplicate names map to errs.ErrConflict.
func (s *Store) CreateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error) {
    if err := insertCategory(ctx, s.pool, c); err != nil { return ledger.Category{}, classify(err) }
    return c, nil
}

// UpdateCategory renames or re-icons a category. Empty fields keep their
// value; duplicate names map to errs.ErrConflict.
func (s *Store) UpdateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error) {
    var out ledger.Category
    err := s.serializable(ctx, func(tx pgx.Tx) error {
        cur, err := scanCategory(tx.QueryRow(ctx, selectCategory+` where id = $1 and user_id = $2`, c.ID, c.UserID))
        if err != nil { return err }
        if c.Direction != "" && c.Direction != cur.Direction {
            return fmt.Errorf("%w: category direction cannot change", errs.ErrValidation)
        }
        if c.Name != "" { cur.Name = c.Name }
        if c.Icon != "" { cur.Icon = c.Icon }
        if _, err := tx.Exec(ctx, `update categories set name=$1, icon=$2 where id=$3 and user_id=$4`, cur.Name, cur.Icon, cur.ID, cur.UserID); err != nil {
            return err
        }
        out = cur
        return nil
    })
    if err != nil { return ledger.Category{}, err }
    return out, nil
}

// DeleteCategory removes a category; the restrict foreign key rejects referenced ones.
func (s *Store) DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
    ct, err := s.pool.Exec(ctx, `delete from categories where id=$1 and user_id=$2`, categoryID, userID)
    var pgErr *pgconn.PgError
    if errors.As(err, &pgErr) && pgErr.Code == "23503" { return errs.ErrInUse }
    if err != nil { return err }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}
