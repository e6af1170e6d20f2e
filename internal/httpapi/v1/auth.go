package v1

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/google/uuid"

    "github.com/tinoosan/walletledger/internal/ledger"
)

type ctxKey string

const ctxKeyUserID ctxKey = "userID"

// userHeader identifies the caller when no JWT secret is configured (local dev and tests).
const userHeader = "X-User-ID"

func parseBearerToken(r *http.Request) (string, bool) {
    h := r.Header.Get("Authorization")
    if h == "" { return "", false }
    if !strings.HasPrefix(h, "Bearer ") && !strings.HasPrefix(h, "bearer ") { return "", false }
    return strings.TrimSpace(h[len("Bearer "):]), true
}

// verifyToken checks an HS256 token and returns its subject as a user id.
func (s *Server) verifyToken(raw string) (uuid.UUID, error) {
    opts := []jwt.ParserOption{
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithLeeway(30 * time.Second),
    }
    if s.opts.JWTIssuer != "" { opts = append(opts, jwt.WithIssuer(s.opts.JWTIssuer)) }
    if s.opts.JWTAudience != "" { opts = append(opts, jwt.WithAudience(s.opts.JWTAudience)) }
    claims := &jwt.RegisteredClaims{}
    _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
        return []byte(s.opts.JWTSecret), nil
    }, opts...)
    if err != nil { return uuid.Nil, err }
    id, err := uuid.Parse(claims.Subject)
    if err != nil || id == uuid.Nil { return uuid.Nil, errors.New("subject is not a user id") }
    return id, nil
}

// authenticate resolves the caller's user id and makes sure the user exists.
// With a JWT secret configured it requires Authorization: Bearer <HS256 JWT>
// whose subject is the user id; otherwise it trusts the X-User-ID header.
func (s *Server) authenticate(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var userID uuid.UUID
        if s.opts.JWTSecret != "" {
            tok, ok := parseBearerToken(r)
            if !ok { writeErr(w, http.StatusUnauthorized, "missing bearer token", "unauthorized"); return }
            id, err := s.verifyToken(tok)
            if err != nil {
                s.log.Debug("token rejected", "err", err)
                writeErr(w, http.StatusUnauthorized, "invalid token", "unauthorized")
                return
            }
            userID = id
        } else {
            id, err := uuid.Parse(strings.TrimSpace(r.Header.Get(userHeader)))
            if err != nil || id == uuid.Nil { writeErr(w, http.StatusUnauthorized, "X-User-ID header is required", "unauthorized"); return }
            userID = id
        }
        if err := s.ensureUser(r.Context(), userID); err != nil {
            s.writeServiceErr(w, r, err)
            return
        }
        ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

func (s *Server) ensureUser(ctx context.Context, userID uuid.UUID) error {
    if _, ok := s.seen.Load(userID); ok { return nil }
    created, err := s.store.EnsureUser(ctx, ledger.User{ID: userID, Currency: s.opts.Currency})
    if err != nil { return err }
    if created { s.log.Info("user provisioned", "user_id", userID) }
    s.seen.Store(userID, struct{}{})
    return nil
}

// userFrom returns the authenticated user id set by authenticate.
func userFrom(r *http.Request) uuid.UUID {
    id, _ := r.Context().Value(ctxKeyUserID).(uuid.UUID)
    return id
}
