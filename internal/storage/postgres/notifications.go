package postgres

import (
    "context"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

// CreateNotification inserts a notification row; a repeated id is ignored.
func (s *Store) CreateNotification(ctx context.Context, n ledger.Notification) error {
    _, err := s.pool.Exec(ctx, `
        insert into notifications (id, user_id, title, message, severity, read, created_at)
        values ($1,$2,$3,$4,$5,$6,$7)
        on conflict (id) do nothing
    `, n.ID, n.UserID, n.Title, n.Message, string(n.Severity), n.Read, n.CreatedAt)
    return err
}

// ListNotifications returns up to limit notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.Notification, error) {
    rows, err := s.pool.Query(ctx, `
        select id, user_id, title, message, severity, read, created_at
        from notifications
        where user_id = $1
        order by created_at desc, id desc
        limit $2
    `, userID, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Notification, 0)
    for rows.Next() {
        var n ledger.Notification
        var sev string
        if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &sev, &n.Read, &n.CreatedAt); err != nil { return nil, err }
        n.Severity = ledger.Severity(sev)
        out = append(out, n)
    }
    return out, rows.Err()
}

// MarkNotificationRead flags one notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
    ct, err := s.pool.Exec(ctx, `update notifications set read = true where id=$1 and user_id=$2`, id, userID)
    if err != nil { return err }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}

// MarkAllNotificationsRead flags every unread notification of a user.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int, error) {
    ct, err := s.pool.Exec(ctx, `update notifications set read = true where user_id=$1 and read = false`, userID)
    if err != nil { return 0, err }
    return int(ct.RowsAffected()), nil
}
