package httpapi

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/server/api"
	"github.com/dmitrijs2005/teamflow/internal/server/auth"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID reuses the caller's X-Request-ID or assigns a fresh one and
// echoes it on the response.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error(r.Context(), "panic recovered",
					"panic", rec,
					"method", r.Method,
					"url", r.URL.String(),
					"request_id", requestIDFrom(r.Context()),
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, api.Response{
					Error: &api.ErrorBody{Kind: api.KindInternal, Message: "internal error"},
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the Bearer token into an api.Principal.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			unauthorized(w, "missing token")
			return
		}

		claims, err := auth.ParseToken(strings.TrimSpace(token), s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				unauthorized(w, "token expired")
				return
			}
			s.logger.Debug(r.Context(), "rejected access token", "error", err)
			unauthorized(w, "invalid token")
			return
		}

		ctx := api.WithPrincipal(r.Context(), api.Principal{UserID: claims.UserID, Capabilities: claims.Capabilities})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, api.Response{
		Error: &api.ErrorBody{Kind: api.KindUnauthorized, Message: msg},
	})
}
