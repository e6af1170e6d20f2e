package v1

import (
    "net/http"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/dictionary"
    "github.com/tinoosan/walletledger/internal/ledger"
    "github.com/tinoosan/walletledger/internal/service/category"
)

func (s *Server) postCategory(w http.ResponseWriter, r *http.Request) {
    in, ok := r.Context().Value(ctxKeyPostCategory).(ledger.Category)
    if !ok { writeErr(w, http.StatusInternalServerError, "missing validated request", "internal"); return }
    c, err := s.catSvc.Create(r.Context(), in)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusCreated, toCategoryResponses([]ledger.Category{c})[0])
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
    cs, err := s.catSvc.List(r.Context(), userFrom(r))
    if err != nil { s.writeServiceErr(w, r, err); return }
    if d := ledger.Direction(r.URL.Query().Get("direction")); d != "" {
        if !d.Valid() { badRequest(w, "invalid direction"); return }
        filtered := cs[:0]
        for _, c := range cs {
            if c.Direction == d { filtered = append(filtered, c) }
        }
        cs = filtered
    }
    toJSON(w, http.StatusOK, itemsResponse[categoryResponse]{Items: toCategoryResponses(cs)})
}

// patchCategory handles PATCH /v1/categories/{id}: rename or change the icon.
// Direction is fixed; sending a different one is a validation error.
func (s *Server) patchCategory(w http.ResponseWriter, r *http.Request) {
    if !requireJSON(w, r) { return }
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil { badRequest(w, "invalid category id"); return }
    var req patchCategoryRequest
    if err := decodeStrict(w, r, &req); err != nil {
        badRequest(w, "invalid JSON: "+err.Error())
        return
    }
    c, err := s.catSvc.Update(r.Context(), userFrom(r), id, category.Patch{Name: req.Name, Icon: req.Icon, Direction: req.Direction})
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toCategoryResponses([]ledger.Category{c})[0])
}

// deleteCategory handles DELETE /v1/categories/{id}; categories still referenced
// by transactions answer 409 in_use.
func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil { badRequest(w, "invalid category id"); return }
    if err := s.catSvc.Delete(r.Context(), userFrom(r), id); err != nil { s.writeServiceErr(w, r, err); return }
    w.WriteHeader(http.StatusNoContent)
}

// GET /v1/dictionary/categories?direction=
func (s *Server) getCategoriesDictionary(w http.ResponseWriter, r *http.Request) {
    var d *ledger.Direction
    if raw := r.URL.Query().Get("direction"); raw != "" {
        dd := ledger.Direction(raw)
        if !dd.Valid() { badRequest(w, "invalid direction"); return }
        d = &dd
    }
    toJSON(w, http.StatusOK, itemsResponse[dictionary.CategoryDef]{Items: dictionary.CategoriesFor(d)})
}
