package v1

import (
    "net/http"
    "strings"

    "github.com/tinoosan/walletledger/internal/ledger"
)

// putPreferences handles PUT /v1/user/preferences. Only the display
// currency is stored; wallets keep the currency they were created in.
func (s *Server) putPreferences(w http.ResponseWriter, r *http.Request) {
    if !requireJSON(w, r) { return }
    var req preferencesRequest
    if err := decodeStrict(w, r, &req); err != nil {
        badRequest(w, "invalid JSON: "+err.Error())
        return
    }
    curr := strings.ToUpper(strings.TrimSpace(req.Currency))
    if !ledger.ValidPreference(curr) {
        unprocessable(w, "currency must be one of "+strings.Join(ledger.PreferenceCurrencies, ", "), "validation_error")
        return
    }
    u, err := s.store.SetUserCurrency(r.Context(), userFrom(r), curr)
    if err != nil { s.writeServiceErr(w, r, err); return }
    s.log.Info("user currency updated", "user_id", u.ID, "currency", u.Currency)
    toJSON(w, http.StatusOK, preferencesResponse{UserID: u.ID, Currency: u.Currency})
}
