// Package api is the client side of the ledger HTTP API. Failures come back
// as the errs sentinels so callers can tell a retry-later failure from a
// definitive rejection.
package api

import (
    "bytes"
    "context"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/goccy/go-json"
    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/client/store"
    "github.com/tinoosan/walletledger/internal/errs"
    "github.com/tinoosan/walletledger/internal/ledger"
)

// Options configures a Client. Token takes precedence over UserID.
type Options struct {
    BaseURL    string
    Token      string
    UserID     uuid.UUID
    Timeout    time.Duration
    HTTPClient *http.Client
}

type Client struct {
    base string
    opts Options
    http *http.Client
}

func New(opts Options) *Client {
    if opts.Timeout <= 0 { opts.Timeout = 15 * time.Second }
    hc := opts.HTTPClient
    if hc == nil { hc = &http.Client{Timeout: opts.Timeout} }
    return &Client{base: strings.TrimRight(opts.BaseURL, "/"), opts: opts, http: hc}
}

// Balance is the wallet totals returned with a committed transaction.
type Balance struct {
    WalletID     *uuid.UUID `json:"wallet_id"`
    BalanceMinor int64      `json:"balance_minor"`
    IncomeMinor  int64      `json:"income_minor"`
    ExpenseMinor int64      `json:"expense_minor"`
    Currency     string     `json:"currency"`
}

// SubmitResult is the server's answer to a transaction submission.
type SubmitResult struct {
    TransactionID uuid.UUID         `json:"transaction_id"`
    Transaction   store.Transaction `json:"transaction"`
    Balance       Balance           `json:"balance"`
    Replayed      bool              `json:"replayed"`
}

type errorBody struct {
    Error string `json:"error"`
    Code  string `json:"code"`
}

// Submit posts one transaction. The request's ClientRef is sent as the
// Idempotency-Key so a resubmission replays instead of duplicating.
func (c *Client) Submit(ctx context.Context, req ledger.SubmitRequest) (SubmitResult, error) {
    var hdr map[string]string
    if req.ClientRef != "" { hdr = map[string]string{"Idempotency-Key": req.ClientRef} }
    var out SubmitResult
    if err := c.do(ctx, http.MethodPost, "/v1/transactions", req, hdr, &out); err != nil { return SubmitResult{}, err }
    return out, nil
}

// Bootstrap fetches the canonical snapshot.
func (c *Client) Bootstrap(ctx context.Context) (store.Snapshot, error) {
    var snap store.Snapshot
    if err := c.do(ctx, http.MethodGet, "/v1/bootstrap", nil, nil, &snap); err != nil { return store.Snapshot{}, err }
    snap.Version = store.Version
    snap.UpdatedAt = time.Now().UTC()
    return snap, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
    return c.do(ctx, http.MethodPut, "/v1/notifications/"+id.String()+"/read", nil, nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
    return c.do(ctx, http.MethodPut, "/v1/notifications/read", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, hdr map[string]string, out any) error {
    var rdr io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return fmt.Errorf("%w: encode request: %v", errs.ErrValidation, err) }
        rdr = bytes.NewReader(b)
    }
    req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
    if err != nil { return fmt.Errorf("%w: %v", errs.ErrValidation, err) }
    if body != nil { req.Header.Set("Content-Type", "application/json") }
    req.Header.Set("Accept", "application/json")
    switch {
    case c.opts.Token != "":
        req.Header.Set("Authorization", "Bearer "+c.opts.Token)
    case c.opts.UserID != uuid.Nil:
        req.Header.Set("X-User-ID", c.opts.UserID.String())
    }
    for k, v := range hdr { req.Header.Set(k, v) }

    resp, err := c.http.Do(req)
    if err != nil {
        // network errors and timeouts, including the caller's deadline
        return fmt.Errorf("%w: %s %s: %v", errs.ErrTransient, method, path, err)
    }
    defer resp.Body.Close()
    raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
    if err != nil { return fmt.Errorf("%w: read response: %v", errs.ErrTransient, err) }

    if resp.StatusCode >= 300 { return classify(resp.StatusCode, raw) }
    if out == nil || len(raw) == 0 { return nil }
    if err := json.Unmarshal(raw, out); err != nil {
        return fmt.Errorf("%w: decode response: %v", errs.ErrTransient, err)
    }
    return nil
}

// classify maps an error response onto a sentinel. Server-side and auth
// failures are transient; a queued write must never be dropped for them.
func classify(status int, raw []byte) error {
    var body errorBody
    _ = json.Unmarshal(raw, &body)
    msg := body.Error
    if msg == "" { msg = http.StatusText(status) }
    switch {
    case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests,
        status == http.StatusUnauthorized:
        return fmt.Errorf("%w: %d %s", errs.ErrTransient, status, msg)
    }
    if sentinel := errs.FromCode(body.Code); sentinel != nil {
        if errors.Is(sentinel, errs.ErrForbidden) { return fmt.Errorf("%w: %s", errs.ErrTransient, msg) }
        return fmt.Errorf("%w: %s", sentinel, msg)
    }
    if status == http.StatusNotFound { return fmt.Errorf("%w: %s", errs.ErrNotFound, msg) }
    if status == http.StatusConflict { return fmt.Errorf("%w: %s", errs.ErrConflict, msg) }
    return fmt.Errorf("%w: %d %s", errs.ErrValidation, status, msg)
}
