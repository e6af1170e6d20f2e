// Package syncer drains the Offline Queue into the Transaction Writer and
// routes new writes either straight to the server or into the queue.
package syncer

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "sync/atomic"
    "time"

    "github.com/tinoosan/walletledger/internal/client/api"
    "github.com/tinoosan/walletledger/internal/client/queue"
    "github.com/tinoosan/walletledger/internal/client/store"
    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

// State is the engine's drain state.
type State int32

const (
    StateIdle State = iota
    StateDraining
    // StateBlocked is entered when the front item lost a serialization race on
    // the server. The next drain attempt leaves it.
    StateBlocked
)

func (s State) String() string {
    switch s {
    case StateIdle:
        return "idle"
    case StateDraining:
        return "draining"
    case StateBlocked:
        return "blocked-on-conflict"
    }
    return fmt.Sprintf("State(%d)", int32(s))
}

// Notices shown to the user, at most one per pass.
const (
    NoticeSyncFailed  = "Failed to sync offline transactions. Will retry."
    NoticeNeedsAction = "Some offline transactions were rejected and need attention."
)

// Server is the part of the ledger API the engine needs.
type Server interface {
    Submit(ctx context.Context, req ledger.SubmitRequest) (api.SubmitResult, error)
    Bootstrap(ctx context.Context) (store.Snapshot, error)
}

// Options tunes the engine.
type Options struct {
    // ItemTimeout bounds each submission; expiry counts as a transient failure.
    ItemTimeout time.Duration
    // Online is the connectivity assumed until Online or Offline is called.
    Online bool
}

// Report summarizes one drain pass.
type Report struct {
    Synced    int
    Remaining int
    Parked    int
    // Coalesced is set when another pass was already running and this call did nothing.
    Coalesced bool
    Notice    string
}

// Engine owns the sync state machine. Passes are serialized: a Drain that
// arrives while another is running returns immediately.
type Engine struct {
    server Server
    queue  *queue.Queue
    store  *store.Store
    opts   Options
    log    *slog.Logger

    online atomic.Bool
    state  atomic.Int32
}

func New(server Server, q *queue.Queue, s *store.Store, opts Options, logger *slog.Logger) *Engine {
    if opts.ItemTimeout <= 0 { opts.ItemTimeout = 15 * time.Second }
    if logger == nil { logger = slog.Default() }
    e := &Engine{server: server, queue: q, store: s, opts: opts, log: logger}
    e.online.Store(opts.Online)
    return e
}

func (e *Engine) State() State    { return State(e.state.Load()) }
func (e *Engine) IsOnline() bool  { return e.online.Load() }

// Offline records lost connectivity. A running pass stops at its next item.
func (e *Engine) Offline() {
    e.online.Store(false)
    e.state.CompareAndSwap(int32(StateBlocked), int32(StateIdle))
}

// Online records restored connectivity and drains the queue.
func (e *Engine) Online(ctx context.Context) Report {
    e.online.Store(true)
    return e.Drain(ctx)
}

// Bootstrap restores the queue and the cached snapshot, refreshes from the
// server when online, and drains a non-empty queue. It reports whether any
// ledger state (cached or fresh) is available.
func (e *Engine) Bootstrap(ctx context.Context) (Report, bool, error) {
    if err := e.queue.Load(); err != nil { return Report{}, false, fmt.Errorf("load queue: %w", err) }
    cached, err := e.store.Load(e.queue.Items())
    if err != nil { return Report{}, false, fmt.Errorf("load cache: %w", err) }
    if !e.IsOnline() {
        if cached { e.log.Info("offline, showing cached data", "pending", e.queue.Len()) }
        return Report{Remaining: e.queue.Len()}, cached, nil
    }
    if err := e.Refresh(ctx); err != nil {
        if !errs.Transient(err) { return Report{}, cached, err }
        e.log.Warn("bootstrap refresh failed, using cached data", "err", err)
        return Report{Remaining: e.queue.Len()}, cached, nil
    }
    if e.queue.Len() == 0 { return Report{}, true, nil }
    return e.Drain(ctx), true, nil
}

// Refresh replaces the confirmed snapshot with the server's and re-applies
// the queue on top of it.
func (e *Engine) Refresh(ctx context.Context) error {
    snap, err := e.server.Bootstrap(ctx)
    if err != nil { return err }
    return e.store.ApplySnapshot(snap, e.queue.Items())
}

// Drain submits queued items oldest first, one at a time. A transient
// failure or a conflict stops the pass with the item still at the front. A
// permanent rejection parks the item and the pass continues.
func (e *Engine) Drain(ctx context.Context) Report {
    if !e.state.CompareAndSwap(int32(StateIdle), int32(StateDraining)) &&
        !e.state.CompareAndSwap(int32(StateBlocked), int32(StateDraining)) {
        return Report{Coalesced: true, Remaining: e.queue.Len()}
    }
    next := StateIdle
    defer func() { e.state.Store(int32(next)) }()

    var rep Report
    failed := false
    for e.IsOnline() && ctx.Err() == nil {
        it, ok := e.queue.Peek()
        if !ok { break }
        ictx, cancel := context.WithTimeout(ctx, e.opts.ItemTimeout)
        res, err := e.server.Submit(ictx, it.Payload)
        cancel()

        if err == nil {
            if err := e.queue.Remove(it.LocalID); err != nil {
                // the server has it; the replay on the next pass is idempotent
                e.log.Warn("could not dequeue synced transaction", "local_id", it.LocalID, "err", err)
                failed = true
                break
            }
            if err := e.store.Confirm(it.LocalID, res.Transaction); err != nil {
                e.log.Warn("could not cache synced transaction", "local_id", it.LocalID, "err", err)
            }
            rep.Synced++
            continue
        }

        if errors.Is(err, errs.ErrConflict) {
            e.log.Warn("sync blocked on conflict", "local_id", it.LocalID, "err", err)
            next = StateBlocked
            failed = true
            break
        }
        if !errs.Permanent(err) {
            e.log.Warn("sync paused on transient failure", "local_id", it.LocalID, "err", err)
            failed = true
            break
        }
        e.log.Warn("queued transaction rejected", "local_id", it.LocalID, "code", errs.Code(err), "err", err)
        if perr := e.queue.Park(it.LocalID, errs.Code(err), err.Error()); perr != nil {
            e.log.Error("could not park rejected transaction", "local_id", it.LocalID, "err", perr)
            failed = true
            break
        }
        e.store.DropPending(it.LocalID)
        rep.Parked++
    }

    if rep.Synced > 0 && e.IsOnline() {
        if err := e.Refresh(ctx); err != nil { e.log.Warn("refresh after sync failed", "err", err) }
    }
    rep.Remaining = e.queue.Len()
    // a cancelled pass that left work behind failed like a transient error
    if ctx.Err() != nil && rep.Remaining > 0 { failed = true }
    switch {
    case rep.Parked > 0:
        rep.Notice = NoticeNeedsAction
    case failed && rep.Remaining > 0:
        rep.Notice = NoticeSyncFailed
    }
    e.log.Info("sync pass complete", "synced", rep.Synced, "remaining", rep.Remaining, "parked", rep.Parked, "state", next)
    return rep
}
