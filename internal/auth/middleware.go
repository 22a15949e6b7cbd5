package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/betonops/receivables/internal/platform/httpx"
	"github.com/betonops/receivables/internal/shared"
)

// Middleware wires caller resolution and capability checks for handlers.
type Middleware struct {
	Verifier *Verifier
	Logger   *slog.Logger
}

// Authenticate resolves the bearer token, when present, into a caller stored
// on the request context. Requests without a token pass through anonymous.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || m.Verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "bearer token required")
			return
		}
		caller, err := m.Verifier.Verify(token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("rejected bearer token", slog.String("path", r.URL.Path), slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithCaller(r.Context(), caller)))
	})
}

// RequireCaller rejects anonymous requests.
func (m Middleware) RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.CallerFromContext(r.Context()); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "bearer token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the caller holds at least one of the capabilities.
func (m Middleware) RequireAny(caps ...shared.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.RequireCaller(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, _ := shared.CallerFromContext(r.Context())
			if len(caps) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			for _, c := range caps {
				if caller.Has(c) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing capability")
		}))
	}
}
