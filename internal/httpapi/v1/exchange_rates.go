package v1

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/shopspring/decimal"

    "github.com/tinoosan/walletledger/internal/fx"
)

type exchangeRatesResponse struct {
    Base       string                     `json:"base"`
    Rates      map[string]decimal.Decimal `json:"rates"`
    FetchedAt  time.Time                  `json:"fetched_at"`
    Stale      bool                       `json:"stale"`
    Conversion *conversionResponse        `json:"conversion,omitempty"`
}

type conversionResponse struct {
    From        string `json:"from"`
    To          string `json:"to"`
    AmountMinor int64  `json:"amount_minor"`
    ResultMinor int64  `json:"result_minor"`
}

// getExchangeRates handles GET /v1/exchange-rates?from=&to=&amount_minor=.
// Rates are for display only. With from, to and amount_minor set the response
// also carries the converted amount.
func (s *Server) getExchangeRates(w http.ResponseWriter, r *http.Request) {
    if s.rates == nil { writeErr(w, http.StatusServiceUnavailable, "exchange rates disabled", "unavailable"); return }
    t, err := s.rates.Get(r.Context())
    if err != nil {
        s.log.Warn("exchange rates unavailable", "err", err)
        writeErr(w, http.StatusServiceUnavailable, "exchange rates unavailable", "unavailable")
        return
    }
    resp := exchangeRatesResponse{Base: t.Base, Rates: t.Rates, FetchedAt: t.FetchedAt, Stale: t.Stale}

    q := r.URL.Query()
    if raw := q.Get("amount_minor"); raw != "" {
        amount, err := strconv.ParseInt(raw, 10, 64)
        if err != nil { badRequest(w, "invalid amount_minor"); return }
        from := strings.ToUpper(q.Get("from"))
        if from == "" { from = t.Base }
        to := strings.ToUpper(q.Get("to"))
        if to == "" { to = t.Base }
        out, err := t.Convert(amount, from, to)
        if errors.Is(err, fx.ErrUnknownCurrency) { unprocessable(w, err.Error(), "validation_error"); return }
        if err != nil { s.writeServiceErr(w, r, err); return }
        resp.Conversion = &conversionResponse{From: from, To: to, AmountMinor: amount, ResultMinor: out}
    }
    toJSON(w, http.StatusOK, resp)
}
