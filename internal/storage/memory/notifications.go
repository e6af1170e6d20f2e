package memory

import (
    "context"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

// CreateNotification appends a notification record.
func (s *Store) CreateNotification(_ context.Context, n ledger.Notification) error {
    s.mu.Lock(); defer s.mu.Unlock()
    if _, ok := s.notes[n.ID]; ok { return nil }
    nn := n
    s.notes[n.ID] = &nn
    s.notesByUser[n.UserID] = append(s.notesByUser[n.UserID], n.ID)
    return nil
}

// ListNotifications returns up to limit notifications, newest first.
func (s *Store) ListNotifications(_ context.Context, userID uuid.UUID, limit int) ([]ledger.Notification, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    ids := s.notesByUser[userID]
    out := make([]ledger.Notification, 0, min(len(ids), limit))
    for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
        out = append(out, *s.notes[ids[i]])
    }
    return out, nil
}

// MarkNotificationRead flags one notification as read.
func (s *Store) MarkNotificationRead(_ context.Context, userID, id uuid.UUID) error {
    s.mu.Lock(); defer s.mu.Unlock()
    n, ok := s.notes[id]
    if !ok || n.UserID != userID { return errs.ErrNotFound }
    n.Read = true
    return nil
}

// MarkAllNotificationsRead flags every unread notification of a user and returns how many changed.
func (s *Store) MarkAllNotificationsRead(_ context.Context, userID uuid.UUID) (int, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    changed := 0
    for _, id := range s.notesByUser[userID] {
        if n := s.notes[id]; !n.Read { n.Read = true; changed++ }
    }
    return changed, nil
}
