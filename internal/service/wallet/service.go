// Package wallet implements wallet rules: per-user unique names, a non-negative
// initial balance, adjustments that keep the derived balance non-negative, and
// deletes that detach history.
package wallet

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/retry"
)

type Repo interface {
    ListWallets(ctx context.Context, userID uuid.UUID) ([]ledger.Wallet, error)
    GetWallet(ctx context.Context, userID, walletID uuid.UUID) (ledger.Wallet, error)
    WalletTotals(ctx context.Context, userID, walletID uuid.UUID) (ledger.Totals, error)
}

type Writer interface {
    CreateWallet(ctx context.Context, w ledger.Wallet) (ledger.Wallet, error)
    // UpdateWallet sets name and kind from w and adds adjustMinor to the
    // stored initial balance in one isolated step. It fails with
    // errs.ErrInsufficientFunds if the derived balance would go negative.
    UpdateWallet(ctx context.Context, w ledger.Wallet, adjustMinor int64) (ledger.Wallet, error)
    DeleteWallet(ctx context.Context, userID, walletID uuid.UUID) error
}

// WithTotals is a wallet with its derived totals.
type WithTotals struct {
    ledger.Wallet
    Totals ledger.Totals
}

// Patch is a partial wallet update. BalanceAdjustmentMinor is added to the initial balance.
type Patch struct {
    Name                   *string
    Kind                   *ledger.WalletKind
    BalanceAdjustmentMinor int64
}

type Service interface {
    ValidateCreate(w ledger.Wallet) error
    Create(ctx context.Context, w ledger.Wallet) (WithTotals, error)
    List(ctx context.Context, userID uuid.UUID) ([]WithTotals, error)
    Get(ctx context.Context, userID, walletID uuid.UUID) (WithTotals, error)
    Update(ctx context.Context, userID, walletID uuid.UUID, p Patch) (WithTotals, error)
    Delete(ctx context.Context, userID, walletID uuid.UUID) error
}

type service struct {
    repo     Repo
    writer   Writer
    currency string
}

func New(repo Repo, writer Writer, currency string) Service {
    if currency == "" { currency = ledger.DefaultCurrency }
    return &service{repo: repo, writer: writer, currency: strings.ToUpper(currency)}
}

func (s *service) ValidateCreate(w ledger.Wallet) error {
    if w.UserID == uuid.Nil { return fmt.Errorf("%w: user is required", errs.ErrValidation) }
    name := strings.TrimSpace(w.Name)
    if name == "" { return fmt.Errorf("%w: name is required", errs.ErrValidation) }
    if len(name) > 60 { return fmt.Errorf("%w: name too long", errs.ErrValidation) }
    if w.Kind != "" && !w.Kind.Valid() { return fmt.Errorf("%w: unknown wallet kind %q", errs.ErrValidation, w.Kind) }
    if ledger.Minor(w.InitialBalance) < 0 { return fmt.Errorf("%w: initial balance must be >= 0", errs.ErrValidation) }
    return nil
}

func (s *service) Create(ctx context.Context, w ledger.Wallet) (WithTotals, error) {
    if err := s.ValidateCreate(w); err != nil { return WithTotals{}, err }
    w.ID = uuid.New()
    w.Name = strings.TrimSpace(w.Name)
    if w.Kind == "" { w.Kind = ledger.WalletKindCash }
    w.InitialBalance = ledger.Amount(s.currency, ledger.Minor(w.InitialBalance))
    w.CreatedAt = time.Now().UTC()
    created, err := s.writer.CreateWallet(ctx, w)
    if err != nil { return WithTotals{}, err }
    return WithTotals{Wallet: created, Totals: ledger.Totals{Balance: ledger.Minor(created.InitialBalance)}}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]WithTotals, error) {
    if userID == uuid.Nil { return nil, errs.ErrInvalid }
    ws, err := s.repo.ListWallets(ctx, userID)
    if err != nil { return nil, err }
    out := make([]WithTotals, 0, len(ws))
    for _, w := range ws {
        t, err := s.repo.WalletTotals(ctx, userID, w.ID)
        if errors.Is(err, errs.ErrNotFound) { continue }
        if err != nil { return nil, err }
        out = append(out, WithTotals{Wallet: w, Totals: t})
    }
    return out, nil
}

func (s *service) Get(ctx context.Context, userID, walletID uuid.UUID) (WithTotals, error) {
    if userID == uuid.Nil || walletID == uuid.Nil { return WithTotals{}, errs.ErrInvalid }
    w, err := s.repo.GetWallet(ctx, userID, walletID)
    if err != nil { return WithTotals{}, err }
    t, err := s.repo.WalletTotals(ctx, userID, walletID)
    if err != nil { return WithTotals{}, err }
    return WithTotals{Wallet: w, Totals: t}, nil
}

// Update applies p. The adjustment is a delta applied by the store, so
// concurrent adjustments add up; serialization failures are retried.
func (s *service) Update(ctx context.Context, userID, walletID uuid.UUID, p Patch) (WithTotals, error) {
    if userID == uuid.Nil || walletID == uuid.Nil { return WithTotals{}, errs.ErrInvalid }
    var updated ledger.Wallet
    err := retry.Default().Do(ctx, func(int) error {
        w, err := s.repo.GetWallet(ctx, userID, walletID)
        if err != nil { return err }
        if p.Name != nil { w.Name = strings.TrimSpace(*p.Name) }
        if p.Kind != nil { w.Kind = *p.Kind }
        if err := s.ValidateCreate(ledger.Wallet{UserID: userID, Name: w.Name, Kind: w.Kind}); err != nil { return err }
        updated, err = s.writer.UpdateWallet(ctx, w, p.BalanceAdjustmentMinor)
        return err
    })
    if errors.Is(err, retry.ErrExhausted) { return WithTotals{}, fmt.Errorf("%w: wallet is busy, retry later", errs.ErrConflict) }
    if err != nil { return WithTotals{}, err }
    t, err := s.repo.WalletTotals(ctx, userID, walletID)
    if err != nil { return WithTotals{}, err }
    return WithTotals{Wallet: updated, Totals: t}, nil
}

func (s *service) Delete(ctx context.Context, userID, walletID uuid.UUID) error {
    if userID == uuid.Nil || walletID == uuid.Nil { return errs.ErrInvalid }
    return s.writer.DeleteWallet(ctx, userID, walletID)
}
