package v1

import (
    "net/http"

    "github.com/tinoosan/walletledger/internal/service/notification"
    "github.com/tinoosan/walletledger/internal/service/transaction"
)

// bootstrap handles GET /v1/bootstrap: the authoritative snapshot a client
// caches and re-applies its offline queue on top of. First contact seeds the
// default categories.
func (s *Server) bootstrap(w http.ResponseWriter, r *http.Request) {
    ctx := r.Context()
    userID := userFrom(r)
    u, err := s.store.GetUser(ctx, userID)
    if err != nil { s.writeServiceErr(w, r, err); return }
    cats, err := s.catSvc.EnsureDefaults(ctx, userID)
    if err != nil { s.writeServiceErr(w, r, err); return }
    ws, err := s.walletSvc.List(ctx, userID)
    if err != nil { s.writeServiceErr(w, r, err); return }
    txs, err := s.txSvc.List(ctx, userID, transaction.Filter{})
    if err != nil { s.writeServiceErr(w, r, err); return }
    notes, err := s.noteSvc.List(ctx, userID, notification.DefaultLimit)
    if err != nil { s.writeServiceErr(w, r, err); return }

    curr := u.Currency
    if curr == "" { curr = s.opts.Currency }
    toJSON(w, http.StatusOK, bootstrapResponse{
        UserID:        userID,
        Currency:      curr,
        Wallets:       toWalletResponses(ws),
        Categories:    toCategoryResponses(cats),
        Transactions:  toTransactionResponses(txs),
        Notifications: toNotificationResponses(notes),
    })
}
