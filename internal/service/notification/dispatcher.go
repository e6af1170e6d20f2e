package notification

import (
    "context"
    "log/slog"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"

    "github.com/tinoosan/walletledger/internal/ledger"
)

var notificationsTotal = promauto.NewCounterVec(
    prometheus.CounterOpts{
        Namespace: "ledger",
        Name:      "notifications_total",
        Help:      "Notifications handled by the dispatcher by severity and outcome",
    },
    []string{"severity", "outcome"},
)

// DispatcherOptions tunes a Dispatcher.
type DispatcherOptions struct {
    // Buffer is the queue capacity; Enqueue drops when it is full.
    Buffer int
    // Timeout bounds each store write. It is detached from the request context.
    Timeout time.Duration
}

// Dispatcher persists notifications on a background worker.
type Dispatcher struct {
    writer Writer
    opts   DispatcherOptions
    log    *slog.Logger

    mu     sync.RWMutex
    closed bool
    ch     chan ledger.Notification
    done   chan struct{}
}

// NewDispatcher starts the worker goroutine. Call Close to drain and stop it.
func NewDispatcher(w Writer, opts DispatcherOptions, logger *slog.Logger) *Dispatcher {
    if opts.Buffer <= 0 { opts.Buffer = 256 }
    if opts.Timeout <= 0 { opts.Timeout = 5 * time.Second }
    if logger == nil { logger = slog.Default() }
    d := &Dispatcher{
        writer: w,
        opts:   opts,
        log:    logger,
        ch:     make(chan ledger.Notification, opts.Buffer),
        done:   make(chan struct{}),
    }
    go d.run()
    return d
}

// Enqueue schedules n without blocking. It returns false if n was dropped.
func (d *Dispatcher) Enqueue(n ledger.Notification) bool {
    n, err := prepare(n)
    if err != nil {
        notificationsTotal.WithLabelValues(string(n.Severity.Normalize()), "invalid").Inc()
        return false
    }
    d.mu.RLock(); defer d.mu.RUnlock()
    if d.closed {
        notificationsTotal.WithLabelValues(string(n.Severity), "dropped").Inc()
        return false
    }
    select {
    case d.ch <- n:
        return true
    default:
        notificationsTotal.WithLabelValues(string(n.Severity), "dropped").Inc()
        return false
    }
}

// Close stops accepting notifications and waits for queued ones to be written
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
    d.mu.Lock()
    if !d.closed {
        d.closed = true
        close(d.ch)
    }
    d.mu.Unlock()
    select {
    case <-d.done:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

func (d *Dispatcher) run() {
    defer close(d.done)
    for n := range d.ch {
        ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
        err := d.writer.CreateNotification(ctx, n)
        cancel()
        if err != nil {
            notificationsTotal.WithLabelValues(string(n.Severity), "failed").Inc()
            d.log.Warn("notification write failed", "user_id", n.UserID, "severity", n.Severity, "err", err)
            continue
        }
        notificationsTotal.WithLabelValues(string(n.Severity), "created").Inc()
    }
}
