package memory

import (
    "context"
    "fmt"
    "sort"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/slug"
)

// ListCategories returns a user's categories, income first, then by name.
func (s *Store) ListCategories(_ context.Context, userID uuid.UUID) ([]ledger.Category, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    out := make([]ledger.Category, 0)
    for _, c := range s.categories {
        if c.UserID == userID { out = append(out, c) }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Direction != out[j].Direction { return out[i].Direction == ledger.DirectionIncome }
        return slug.NameKey(out[i].Name) < slug.NameKey(out[j].Name)
    })
    return out, nil
}

// CreateCategory persists a category; (user, direction, name) is unique case-insensitively.
func (s *Store) CreateCategory(_ context.Context, c ledger.Category) (ledger.Category, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    key := slug.NameKey(c.Name)
    for _, o := range s.categories {
        if o.UserID == c.UserID && o.Direction == c.Direction && slug.NameKey(o.Name) == key {
            return ledger.Category{}, fmt.Errorf("%w: category name already used", errs.ErrConflict)
        }
    }
    s.categories[c.ID] = c
    return c, nil
}

// UpdateCategory renames or re-icons a category. Empty fields keep their value.
func (s *Store) UpdateCategory(_ context.Context, c ledger.Category) (ledger.Category, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    cur, ok := s.categories[c.ID]
    if !ok || cur.UserID != c.UserID { return ledger.Category{}, errs.ErrNotFound }
    if c.Direction != "" && c.Direction != cur.Direction {
        return ledger.Category{}, fmt.Errorf("%w: category direction cannot change", errs.ErrValidation)
    }
    if c.Name != "" {
        key := slug.NameKey(c.Name)
        for _, o := range s.categories {
            if o.ID != cur.ID && o.UserID == cur.UserID && o.Direction == cur.Direction && slug.NameKey(o.Name) == key {
                return ledger.Category{}, fmt.Errorf("%w: category name already used", errs.ErrConflict)
            }
        }
        cur.Name = c.Name
    }
    if c.Icon != "" { cur.Icon = c.Icon }
    s.categories[cur.ID] = cur
    return cur, nil
}

// DeleteCategory removes a category that no transaction references.
func (s *Store) DeleteCategory(_ context.Context, userID, categoryID uuid.UUID) error {
    s.mu.Lock(); defer s.mu.Unlock()
    c, ok := s.categories[categoryID]
    if !ok || c.UserID != userID { return errs.ErrNotFound }
    for _, k := range s.txKeysByUser[userID] {
        if t, ok := s.txs[k.ID]; ok && t.CategoryID == categoryID { return errs.ErrInUse }
    }
    delete(s.categories, categoryID)
    return nil
}
