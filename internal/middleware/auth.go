package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-identity-service/internal/model"
)

type tokenVerifier interface {
	Verify(token string) (model.Principal, error)
}

type verificationRecorder interface {
	ObserveTokenVerification(outcome string)
}

type contextKey string

const principalContextKey contextKey = "principal"

const (
	VerificationValid   = "valid"
	VerificationInvalid = "invalid"
	VerificationExpired = "expired"
)

type AuthMiddleware struct {
	verifier tokenVerifier
	recorder verificationRecorder
}

func NewAuthMiddleware(verifier tokenVerifier, recorder verificationRecorder) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, recorder: recorder}
}

// Authenticate attaches the principal of a valid bearer token to the request.
// A missing or failing token leaves the request anonymous; RequireAuth and
// RequireRoles decide later whether that is acceptable.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.verifier.Verify(token)
		if err != nil {
			outcome := VerificationInvalid
			if errors.Is(err, model.ErrExpiredToken) {
				outcome = VerificationExpired
			}
			m.observe(outcome)
			slog.Debug("bearer token rejected", "outcome", outcome, "path", r.URL.Path, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		m.observe(VerificationValid)
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRoles lets the request through when the principal holds any of allowedRoles.
func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[model.NormalizeRole(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
				return
			}

			for _, role := range principal.Roles {
				if _, allowed := roleSet[model.NormalizeRole(role)]; allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeUnauthorized(w, "FORBIDDEN", "insufficient permissions")
		})
	}
}

func (m *AuthMiddleware) observe(outcome string) {
	if m.recorder != nil {
		m.recorder.ObserveTokenVerification(outcome)
	}
}

func ContextWithPrincipal(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(model.Principal)
	return principal, ok
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}

	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	if code == "FORBIDDEN" {
		w.WriteHeader(http.StatusForbidden)
	} else {
		w.Header().Set("WWW-Authenticate", `Bearer realm="identity"`)
		w.WriteHeader(http.StatusUnauthorized)
	}

	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
