package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the services.
//
// Migrations that create the expected schema live under db/migrations. Writer
// units of work run at SERIALIZABLE isolation; serialization failures surface
// as errs.ErrSerialization so the caller can rerun them.

import (
    "context"
    "errors"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"

    "github.com/tinoosan/walletledger/internal/dictionary"
    "github.com/tinoosan/walletledger/internal/ledger"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
    pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
    cfg, err := pgxpool.ParseConfig(dsn)
    if err != nil { return nil, err }
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil { return nil, err }
    // Verify connection
    if err := pool.Ping(ctx); err != nil { pool.Close(); return nil, err }
    return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { if s.pool != nil { s.pool.Close() } }

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// EnsureUser inserts the user row if missing and reports whether it was created.
func (s *Store) EnsureUser(ctx context.Context, u ledger.User) (bool, error) {
    curr := strings.ToUpper(u.Currency)
    if curr == "" { curr = ledger.DefaultCurrency }
    ct, err := s.pool.Exec(ctx, `
        insert into users (id, email, currency) values ($1, $2, $3)
        on conflict (id) do nothing
    `, u.ID, u.Email, curr)
    if err != nil { return false, err }
    return ct.RowsAffected() == 1, nil
}

// GetUser returns the user row, or a zero user with the id set if missing.
func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (ledger.User, error) {
    u := ledger.User{ID: userID}
    err := s.pool.QueryRow(ctx, `select email, currency from users where id = $1`, userID).Scan(&u.Email, &u.Currency)
    if errors.Is(err, pgx.ErrNoRows) { return u, nil }
    if err != nil { return ledger.User{}, err }
    u.Currency = strings.TrimSpace(u.Currency)
    return u, nil
}

// SetUserCurrency upserts the user's display currency.
func (s *Store) SetUserCurrency(ctx context.Context, userID uuid.UUID, curr string) (ledger.User, error) {
    u := ledger.User{ID: userID}
    err := s.pool.QueryRow(ctx, `
        insert into users (id, currency) values ($1, $2)
        on conflict (id) do update set currency = excluded.currency
        returning email, currency
    `, userID, curr).Scan(&u.Email, &u.Currency)
    if err != nil { return ledger.User{}, err }
    u.Currency = strings.TrimSpace(u.Currency)
    return u, nil
}

// SeedDev inserts a user with one cash wallet and the default categories
// for quick local testing.
func (s *Store) SeedDev(ctx context.Context, currency string) (ledger.User, ledger.Wallet, []ledger.Category, error) {
    tx, err := s.pool.Begin(ctx)
    if err != nil { return ledger.User{}, ledger.Wallet{}, nil, err }
    defer func() { _ = tx.Rollback(ctx) }()
    user := ledger.User{ID: uuid.New(), Currency: currency}
    if _, err := tx.Exec(ctx, `insert into users (id, email, currency) values ($1, null, $2)`, user.ID, currency); err != nil {
        return ledger.User{}, ledger.Wallet{}, nil, err
    }
    now := time.Now().UTC()
    w := ledger.Wallet{ID: uuid.New(), UserID: user.ID, Name: "Cash", Kind: ledger.WalletKindCash, InitialBalance: ledger.Amount(currency, 100_000_00), CreatedAt: now}
    if err := insertWallet(ctx, tx, w); err != nil { return ledger.User{}, ledger.Wallet{}, nil, err }
    cats := make([]ledger.Category, 0)
    for _, def := range dictionary.CategoriesFor(nil) {
        c := ledger.Category{ID: uuid.New(), UserID: user.ID, Name: def.Name, Direction: def.Direction, Icon: def.Icon, CreatedAt: now}
        if err := insertCategory(ctx, tx, c); err != nil { return ledger.User{}, ledger.Wallet{}, nil, err }
        cats = append(cats, c)
    }
    if err := tx.Commit(ctx); err != nil { return ledger.User{}, ledger.Wallet{}, nil, err }
    return user, w, cats, nil
}
