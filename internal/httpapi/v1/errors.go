package v1

import (
    "errors"
    "net/http"

    chimw "github.com/go-chi/chi/v5/middleware"

    "github.com/tinoosan/walletledger/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
    Error string `json:"error"`
    Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
    toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "bad_request") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func unprocessable(w http.ResponseWriter, msg, code string) {
    writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// writeServiceErr maps a service error onto a status and a stable code.
// Clients key their retry decision off the code, so every domain error has one.
func (s *Server) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
    switch {
    case errors.Is(err, errs.ErrInsufficientFunds):
        unprocessable(w, err.Error(), "insufficient_funds")
    case errors.Is(err, errs.ErrValidation):
        unprocessable(w, err.Error(), "validation_error")
    case errors.Is(err, errs.ErrNotFound):
        notFound(w)
    case errors.Is(err, errs.ErrForbidden):
        writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
    case errors.Is(err, errs.ErrIdempotencyMismatch):
        writeErr(w, http.StatusConflict, err.Error(), "idempotency_mismatch")
    case errors.Is(err, errs.ErrInUse):
        writeErr(w, http.StatusConflict, err.Error(), "in_use")
    case errors.Is(err, errs.ErrConflict), errors.Is(err, errs.ErrSerialization):
        writeErr(w, http.StatusConflict, err.Error(), "conflict")
    default:
        s.log.Error("request failed", "req_id", chimw.GetReqID(r.Context()), "path", r.URL.Path, "err", err)
        writeErr(w, http.StatusInternalServerError, "internal error", "internal")
    }
}
