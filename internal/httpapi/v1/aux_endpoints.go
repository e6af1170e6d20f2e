package v1

import (
    "context"
    "net/http"
    "time"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
    defer cancel()
    if rc, ok := any(s.store).(ReadyChecker); ok {
        if err := rc.Ready(ctx); err != nil {
            s.log.Warn("readiness check failed", "err", err)
            w.WriteHeader(http.StatusServiceUnavailable)
            return
        }
    }
    w.WriteHeader(http.StatusOK)
}

// openapiSpec serves the local OpenAPI file; /v1/docs renders it.
func (s *Server) openapiSpec(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "application/yaml")
    http.ServeFile(w, r, s.opts.SpecPath)
}
