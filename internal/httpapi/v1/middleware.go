package v1

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/ledger"
)

const (
    ctxKeyPostTransaction   ctxKey = "validatedPostTransaction"
    ctxKeyListTransactions  ctxKey = "validatedListTransactions"
    ctxKeyPostWallet        ctxKey = "validatedPostWallet"
    ctxKeyPostCategory      ctxKey = "validatedPostCategory"
)

// idempotencyHeader carries the client's idempotency key for POST /transactions.
const idempotencyHeader = "Idempotency-Key"

// parseDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates (UTC midnight).
func parseDate(raw string) (time.Time, error) {
    if t, err := time.Parse(time.RFC3339, raw); err == nil { return t.UTC(), nil }
    return time.Parse(time.DateOnly, raw)
}

// validatePostTransaction decodes and validates POST /transactions and stores
// the normalized SubmitRequest in the request context.
func (s *Server) validatePostTransaction(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !requireJSON(w, r) { return }
        var req postTransactionRequest
        if err := decodeStrict(w, r, &req); err != nil {
            badRequest(w, "invalid JSON: "+err.Error())
            return
        }
        key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
        if key != "" && req.ClientRef != "" && key != req.ClientRef {
            badRequest(w, "Idempotency-Key does not match client_ref")
            return
        }
        if key == "" { key = req.ClientRef }
        sub := ledger.SubmitRequest{
            WalletID:       req.WalletID,
            CategoryID:     req.CategoryID,
            AmountMinor:    req.AmountMinor,
            ProductName:    req.ProductName,
            Note:           req.Note,
            Quantity:       req.Quantity,
            UnitPriceMinor: req.UnitPriceMinor,
            Promo:          req.Promo,
            ClientRef:      key,
        }
        if req.Date != "" {
            d, err := parseDate(req.Date)
            if err != nil { unprocessable(w, "invalid date", "validation_error"); return }
            sub.Date = d
        }
        sub = sub.Normalize(time.Now())
        if err := sub.Validate(); err != nil {
            unprocessable(w, err.Error(), "validation_error")
            return
        }
        ctx := context.WithValue(r.Context(), ctxKeyPostTransaction, sub)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

// validateListTransactions parses GET /transactions query params.
func (s *Server) validateListTransactions(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        q := r.URL.Query()
        var query listTransactionsQuery
        if raw := q.Get("wallet_id"); raw != "" {
            id, err := uuid.Parse(raw)
            if err != nil { badRequest(w, "invalid wallet_id"); return }
            query.WalletID = &id
        }
        for _, p := range []struct {
            name string
            dst  **time.Time
        }{{"from", &query.From}, {"to", &query.To}} {
            raw := q.Get(p.name)
            if raw == "" { continue }
            t, err := parseDate(raw)
            if err != nil { badRequest(w, "invalid "+p.name); return }
            *p.dst = &t
        }
        if raw := q.Get("month"); raw != "" {
            if query.From != nil || query.To != nil { badRequest(w, "month cannot be combined with from or to"); return }
            start, err := time.Parse("2006-01", raw)
            if err != nil { badRequest(w, "invalid month, want YYYY-MM"); return }
            end := start.AddDate(0, 1, -1)
            query.From, query.To = &start, &end
        }
        if raw := q.Get("limit"); raw != "" {
            n, err := strconv.Atoi(raw)
            if err != nil || n < 0 { badRequest(w, "invalid limit"); return }
            query.Limit = n
        }
        if raw := q.Get("page"); raw != "" {
            n, err := strconv.Atoi(raw)
            if err != nil || n < 1 { badRequest(w, "invalid page"); return }
            query.Page = n
            if query.Limit == 0 { query.Limit = defaultPageSize }
        }
        ctx := context.WithValue(r.Context(), ctxKeyListTransactions, query)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

// validatePostWallet parses POST /wallets and stores the wallet draft.
func (s *Server) validatePostWallet(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !requireJSON(w, r) { return }
        var req postWalletRequest
        if err := decodeStrict(w, r, &req); err != nil {
            badRequest(w, "invalid JSON: "+err.Error())
            return
        }
        in := ledger.Wallet{
            UserID:         userFrom(r),
            Name:           req.Name,
            Kind:           req.Kind,
            InitialBalance: ledger.Amount(s.opts.Currency, req.InitialBalanceMinor),
        }
        if err := s.walletSvc.ValidateCreate(in); err != nil {
            unprocessable(w, err.Error(), "validation_error")
            return
        }
        ctx := context.WithValue(r.Context(), ctxKeyPostWallet, in)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

// validatePostCategory parses POST /categories and stores the category draft.
func (s *Server) validatePostCategory(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !requireJSON(w, r) { return }
        var req postCategoryRequest
        if err := decodeStrict(w, r, &req); err != nil {
            badRequest(w, "invalid JSON: "+err.Error())
            return
        }
        in := ledger.Category{UserID: userFrom(r), Name: req.Name, Direction: req.Direction, Icon: req.Icon}
        if err := s.catSvc.ValidateCreate(in); err != nil {
            unprocessable(w, err.Error(), "validation_error")
            return
        }
        ctx := context.WithValue(r.Context(), ctxKeyPostCategory, in)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}
