// Package category implements category rules: a fixed direction, per-user
// unique names per direction, and deletes rejected while referenced.
package category

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/dictionary"
    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/slug"
)

type Repo interface {
    ListCategories(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error)
}

type Writer interface {
    CreateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error)
    // UpdateCategory replaces name and icon of an existing category. A set
    // Direction must match the stored one.
    UpdateCategory(ctx context.Context, c ledger.Category) (ledger.Category, error)
    DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error
}

// Patch is a partial category update. Direction is fixed at creation; a
// Direction different from the stored one is rejected.
type Patch struct {
    Name      *string
    Icon      *string
    Direction *ledger.Direction
}

type Service interface {
    ValidateCreate(c ledger.Category) error
    Create(ctx context.Context, c ledger.Category) (ledger.Category, error)
    List(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error)
    Update(ctx context.Context, userID, categoryID uuid.UUID, p Patch) (ledger.Category, error)
    Delete(ctx context.Context, userID, categoryID uuid.UUID) error
    // EnsureDefaults seeds the built-in catalogue for a user with no categories.
    EnsureDefaults(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error)
}

type service struct {
    repo   Repo
    writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) ValidateCreate(c ledger.Category) error {
    if c.UserID == uuid.Nil { return fmt.Errorf("%w: user is required", errs.ErrValidation) }
    name := strings.TrimSpace(c.Name)
    if name == "" { return fmt.Errorf("%w: name is required", errs.ErrValidation) }
    if len(name) > 60 { return fmt.Errorf("%w: name too long", errs.ErrValidation) }
    if !c.Direction.Valid() { return fmt.Errorf("%w: direction must be income or expense", errs.ErrValidation) }
    if c.Icon != "" && !slug.IsIcon(c.Icon) { return fmt.Errorf("%w: invalid icon %q", errs.ErrValidation, c.Icon) }
    return nil
}

func (s *service) Create(ctx context.Context, c ledger.Category) (ledger.Category, error) {
    if err := s.ValidateCreate(c); err != nil { return ledger.Category{}, err }
    c.ID = uuid.New()
    c.Name = strings.TrimSpace(c.Name)
    if c.Icon == "" { c.Icon = slug.DefaultIcon }
    c.CreatedAt = time.Now().UTC()
    return s.writer.CreateCategory(ctx, c)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error) {
    if userID == uuid.Nil { return nil, errs.ErrInvalid }
    return s.repo.ListCategories(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID, categoryID uuid.UUID, p Patch) (ledger.Category, error) {
    if userID == uuid.Nil || categoryID == uuid.Nil { return ledger.Category{}, errs.ErrInvalid }
    c := ledger.Category{ID: categoryID, UserID: userID}
    if p.Name != nil {
        c.Name = strings.TrimSpace(*p.Name)
        if c.Name == "" { return ledger.Category{}, fmt.Errorf("%w: name is required", errs.ErrValidation) }
        if len(c.Name) > 60 { return ledger.Category{}, fmt.Errorf("%w: name too long", errs.ErrValidation) }
    }
    if p.Icon != nil {
        c.Icon = *p.Icon
        if c.Icon == "" { c.Icon = slug.DefaultIcon }
        if !slug.IsIcon(c.Icon) { return ledger.Category{}, fmt.Errorf("%w: invalid icon %q", errs.ErrValidation, c.Icon) }
    }
    if p.Direction != nil { c.Direction = *p.Direction }
    return s.writer.UpdateCategory(ctx, c)
}

func (s *service) Delete(ctx context.Context, userID, categoryID uuid.UUID) error {
    if userID == uuid.Nil || categoryID == uuid.Nil { return errs.ErrInvalid }
    return s.writer.DeleteCategory(ctx, userID, categoryID)
}

func (s *service) EnsureDefaults(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error) {
    existing, err := s.List(ctx, userID)
    if err != nil || len(existing) > 0 { return existing, err }
    for _, def := range dictionary.CategoriesFor(nil) {
        _, err := s.Create(ctx, ledger.Category{UserID: userID, Name: def.Name, Direction: def.Direction, Icon: def.Icon})
        // a concurrent bootstrap may have seeded the same name
        if err != nil && !errors.Is(err, errs.ErrConflict) { return nil, err }
    }
    return s.repo.ListCategories(ctx, userID)
}
