package v1

import (
    "net/http"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/transaction"
)

// postTransaction handles POST /v1/transactions. A new transaction answers
// 201; a replay of an already committed idempotency key answers 200 with the
// original transaction.
func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
    req, ok := r.Context().Value(ctxKeyPostTransaction).(ledger.SubmitRequest)
    if !ok { writeErr(w, http.StatusInternalServerError, "missing validated request", "internal"); return }
    res, err := s.txSvc.Submit(r.Context(), userFrom(r), req)
    if err != nil { s.writeServiceErr(w, r, err); return }

    curr := res.Transaction.Amount.Curr().Code()
    status := http.StatusCreated
    if res.Replayed { status = http.StatusOK }
    toJSON(w, status, submitResponse{
        TransactionID: res.Transaction.ID,
        Transaction:   toTransactionResponse(res.Transaction),
        Balance:       toBalanceResponse(res.Transaction.WalletID, curr, res.Totals),
        Replayed:      res.Replayed,
    })
}

// listTransactions handles GET /v1/transactions, newest first.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
    q, _ := r.Context().Value(ctxKeyListTransactions).(listTransactionsQuery)
    f := transaction.Filter{WalletID: q.WalletID, From: q.From, To: q.To, Limit: q.Limit}
    page := q.Page
    if page == 0 { page = 1 }
    f.Offset = (page - 1) * q.Limit
    txs, err := s.txSvc.List(r.Context(), userFrom(r), f)
    if err != nil { s.writeServiceErr(w, r, err); return }
    total, err := s.txSvc.Count(r.Context(), userFrom(r), f)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, transactionPageResponse{
        Items: toTransactionResponses(txs),
        Page:  page,
        Limit: q.Limit,
        Total: total,
    })
}

// getTransaction handles GET /v1/transactions/{id}.
func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil { badRequest(w, "invalid transaction id"); return }
    t, err := s.txSvc.Get(r.Context(), userFrom(r), id)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toTransactionResponse(t))
}
