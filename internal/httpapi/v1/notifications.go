package v1

import (
    "net/http"
    "strconv"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/service/notification"
)

// listNotifications handles GET /v1/notifications?limit=, newest first.
func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
    limit := notification.DefaultLimit
    if raw := r.URL.Query().Get("limit"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil { badRequest(w, "invalid limit"); return }
        limit = n
    }
    ns, err := s.noteSvc.List(r.Context(), userFrom(r), limit)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, itemsResponse[notificationResponse]{Items: toNotificationResponses(ns)})
}

func (s *Server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
    n, err := s.noteSvc.MarkAllRead(r.Context(), userFrom(r))
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil { badRequest(w, "invalid notification id"); return }
    if err := s.noteSvc.MarkRead(r.Context(), userFrom(r), id); err != nil { s.writeServiceErr(w, r, err); return }
    w.WriteHeader(http.StatusNoContent)
}
