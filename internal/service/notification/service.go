// Package notification stores user notifications and delivers writer side
// effects asynchronously so they never hold up or fail a committed write.
package notification

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

const (
    DefaultLimit = 20
    MaxLimit     = 50
)

type Repo interface {
    ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.Notification, error)
}

type Writer interface {
    CreateNotification(ctx context.Context, n ledger.Notification) error
    MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error
    MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int, error)
}

type Service interface {
    Create(ctx context.Context, n ledger.Notification) (ledger.Notification, error)
    // List returns the newest notifications; limit is clamped to 1..50 and 0 means 20.
    List(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.Notification, error)
    MarkRead(ctx context.Context, userID, id uuid.UUID) error
    MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
}

type service struct {
    repo   Repo
    writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) Create(ctx context.Context, n ledger.Notification) (ledger.Notification, error) {
    n, err := prepare(n)
    if err != nil { return ledger.Notification{}, err }
    if err := s.writer.CreateNotification(ctx, n); err != nil { return ledger.Notification{}, err }
    return n, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, limit int) ([]ledger.Notification, error) {
    if userID == uuid.Nil { return nil, errs.ErrInvalid }
    return s.repo.ListNotifications(ctx, userID, ClampLimit(limit))
}

func (s *service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
    if userID == uuid.Nil || id == uuid.Nil { return errs.ErrInvalid }
    return s.writer.MarkNotificationRead(ctx, userID, id)
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
    if userID == uuid.Nil { return 0, errs.ErrInvalid }
    return s.writer.MarkAllNotificationsRead(ctx, userID)
}

// ClampLimit maps a requested page size onto 1..MaxLimit.
func ClampLimit(limit int) int {
    switch {
    case limit <= 0:
        return DefaultLimit
    case limit > MaxLimit:
        return MaxLimit
    }
    return limit
}

func prepare(n ledger.Notification) (ledger.Notification, error) {
    if n.UserID == uuid.Nil { return n, fmt.Errorf("%w: user is required", errs.ErrValidation) }
    n.Title = strings.TrimSpace(n.Title)
    n.Message = strings.TrimSpace(n.Message)
    if n.Title == "" || n.Message == "" { return n, fmt.Errorf("%w: title and message are required", errs.ErrValidation) }
    if n.ID == uuid.Nil { n.ID = uuid.New() }
    if n.CreatedAt.IsZero() { n.CreatedAt = time.Now().UTC() }
    n.Severity = n.Severity.Normalize()
    return n, nil
}
