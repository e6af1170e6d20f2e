package transaction

import (
    "fmt"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/ledger"
)

// notifyCommitted hands the post-commit notifications to the notifier. It never
// blocks the caller and never fails the write.
func (s *service) notifyCommitted(userID uuid.UUID, res Result) {
    if s.notify == nil { return }
    t := res.Transaction
    curr := t.Amount.Curr().Code()
    now := s.opts.Now().UTC()

    kind := "Expense"
    if t.Direction == ledger.DirectionIncome { kind = "Income" }
    if t.ProductName != "" { kind += fmt.Sprintf(" %q", t.ProductName) }
    ok := s.notify.Enqueue(ledger.Notification{
        ID:        uuid.New(),
        UserID:    userID,
        Title:     "Transaction saved",
        Message:   fmt.Sprintf("%s of %s recorded. Balance: %s", kind, ledger.Format(curr, t.AmountMinor()), ledger.Format(curr, res.Totals.Balance)),
        Severity:  ledger.SeveritySuccess,
        CreatedAt: now,
    })
    if !ok { s.log.Warn("notification dropped", "user_id", userID, "severity", ledger.SeveritySuccess, "transaction_id", t.ID) }

    if res.Totals.Balance > s.opts.LowBalanceThresholdMinor { return }
    ok = s.notify.Enqueue(ledger.Notification{
        ID:        uuid.New(),
        UserID:    userID,
        Title:     "Low balance",
        Message:   fmt.Sprintf("Wallet balance is %s, at or below %s", ledger.Format(curr, res.Totals.Balance), ledger.Format(curr, s.opts.LowBalanceThresholdMinor)),
        Severity:  ledger.SeverityWarning,
        CreatedAt: now,
    })
    if !ok { s.log.Warn("notification dropped", "user_id", userID, "severity", ledger.SeverityWarning, "transaction_id", t.ID) }
}
