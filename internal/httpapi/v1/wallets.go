package v1

import (
    "net/http"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/wallet"
)

func walletIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid wallet id")
        return uuid.Nil, false
    }
    return id, true
}

func (s *Server) postWallet(w http.ResponseWriter, r *http.Request) {
    in, ok := r.Context().Value(ctxKeyPostWallet).(ledger.Wallet)
    if !ok { writeErr(w, http.StatusInternalServerError, "missing validated request", "internal"); return }
    created, err := s.walletSvc.Create(r.Context(), in)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusCreated, toWalletResponse(created))
}

func (s *Server) listWallets(w http.ResponseWriter, r *http.Request) {
    ws, err := s.walletSvc.List(r.Context(), userFrom(r))
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, itemsResponse[walletResponse]{Items: toWalletResponses(ws)})
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
    id, ok := walletIDParam(w, r)
    if !ok { return }
    wt, err := s.walletSvc.Get(r.Context(), userFrom(r), id)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toWalletResponse(wt))
}

// getWalletBalance handles GET /v1/wallets/{id}/balance.
func (s *Server) getWalletBalance(w http.ResponseWriter, r *http.Request) {
    id, ok := walletIDParam(w, r)
    if !ok { return }
    wt, err := s.walletSvc.Get(r.Context(), userFrom(r), id)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toBalanceResponse(&wt.ID, wt.InitialBalance.Curr().Code(), wt.Totals))
}

// patchWallet handles PATCH /v1/wallets/{id}: rename, change kind, or adjust
// the initial balance. An adjustment that would leave the balance negative is
// rejected with insufficient_funds.
func (s *Server) patchWallet(w http.ResponseWriter, r *http.Request) {
    if !requireJSON(w, r) { return }
    id, ok := walletIDParam(w, r)
    if !ok { return }
    var req patchWalletRequest
    if err := decodeStrict(w, r, &req); err != nil {
        badRequest(w, "invalid JSON: "+err.Error())
        return
    }
    wt, err := s.walletSvc.Update(r.Context(), userFrom(r), id, wallet.Patch{
        Name:                   req.Name,
        Kind:                   req.Kind,
        BalanceAdjustmentMinor: req.BalanceAdjustmentMinor,
    })
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toWalletResponse(wt))
}

// deleteWallet handles DELETE /v1/wallets/{id}. Its transactions are kept, detached.
func (s *Server) deleteWallet(w http.ResponseWriter, r *http.Request) {
    id, ok := walletIDParam(w, r)
    if !ok { return }
    if err := s.walletSvc.Delete(r.Context(), userFrom(r), id); err != nil { s.writeServiceErr(w, r, err); return }
    w.WriteHeader(http.StatusNoContent)
}
