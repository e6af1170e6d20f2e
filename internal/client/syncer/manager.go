package syncer

import (
    "context"
    "fmt"
    "time"

    "github.com/tinoosan/walletledger/internal/client/queue"
    "github.com/tinoosan/walletledger/internal/client/store"
    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

// MessageSavedOffline is reported for writes that were queued.
const MessageSavedOffline = "Transaction saved offline and will sync when online."

// Outcome describes where a recorded transaction ended up.
type Outcome struct {
    Transaction store.Transaction
    // Queued is set when the write is waiting in the Offline Queue.
    Queued  bool
    Message string
}

// Manager is the client write path.
type Manager struct {
    engine *Engine
    now    func() time.Time
}

func NewManager(e *Engine) *Manager { return &Manager{engine: e, now: time.Now} }

// Record submits p directly when online. Transient failures and conflicts
// fall back to the queue; definitive rejections are returned and nothing is
// queued.
func (m *Manager) Record(ctx context.Context, p ledger.SubmitRequest) (Outcome, error) {
    e := m.engine
    p = p.Normalize(m.now())
    if err := p.Validate(); err != nil { return Outcome{}, err }
    // the key is fixed before the first attempt so a lost acknowledgement replays
    if p.ClientRef == "" { p.ClientRef = queue.NewLocalID(m.now()) }

    if e.IsOnline() {
        ictx, cancel := context.WithTimeout(ctx, e.opts.ItemTimeout)
        res, err := e.server.Submit(ictx, p)
        cancel()
        switch {
        case err == nil:
            if err := e.store.Confirm(p.ClientRef, res.Transaction); err != nil {
                e.log.Warn("could not cache confirmed transaction", "client_ref", p.ClientRef, "err", err)
            }
            return Outcome{Transaction: res.Transaction, Message: "Transaction saved."}, nil
        case errs.Permanent(err):
            return Outcome{}, err
        }
        e.log.Info("direct submit failed, queueing", "client_ref", p.ClientRef, "err", err)
    }

    it, err := e.queue.Enqueue(p)
    if err != nil { return Outcome{}, fmt.Errorf("queue transaction: %w", err) }
    t, err := e.store.AddPending(it)
    if err != nil {
        // the write is durable in the queue; the placeholder waits for its category
        e.log.Warn("queued transaction unresolved", "local_id", it.LocalID, "err", err)
    }
    return Outcome{Transaction: t, Queued: true, Message: MessageSavedOffline}, nil
}

// Retry moves a parked transaction back into the queue, where it counts
// toward local balances again until the next drain.
func (m *Manager) Retry(localID string) (store.Transaction, error) {
    e := m.engine
    it, err := e.queue.Retry(localID)
    if err != nil { return store.Transaction{}, err }
    t, err := e.store.AddPending(it)
    if err != nil { e.log.Warn("requeued transaction unresolved", "local_id", localID, "err", err) }
    return t, nil
}

// Discard drops a parked transaction for good.
func (m *Manager) Discard(localID string) error { return m.engine.queue.Discard(localID) }
