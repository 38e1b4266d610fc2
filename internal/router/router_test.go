package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-identity-service/internal/config"
	"go-identity-service/internal/handler"
	"go-identity-service/internal/metrics"
	"go-identity-service/internal/middleware"
	"go-identity-service/internal/repository"
	"go-identity-service/internal/service"
)

const testSecret = "router-test-secret-with-at-least-32-bytes"

type testServer struct {
	handler http.Handler
	tokens  *service.TokenService
}

func newTestServer(t *testing.T, upsertRole string) testServer {
	t.Helper()

	cfg := &config.Config{
		RequestTimeout:     5 * time.Second,
		CORSOrigins:        []string{"*"},
		UpsertRequiredRole: upsertRole,
	}

	accounts := repository.NewMemoryAccountRepository()
	tokens, err := service.NewTokenService(testSecret)
	require.NoError(t, err)
	identity, err := service.NewIdentityService(accounts, service.NewBcryptHasher(bcrypt.MinCost), tokens, service.IdentityOptions{})
	require.NoError(t, err)
	audit := service.NewAuditService(repository.NewMemoryAuditRepository())
	m := metrics.New()

	h := New(cfg, middleware.NewAuthMiddleware(tokens, m), Handlers{
		Auth:   handler.NewAuthHandler(identity, audit, m),
		Audit:  handler.NewAuditHandler(audit),
		Health: handler.NewHealthHandler(accounts, "memory"),
	}, m)

	return testServer{handler: h, tokens: tokens}
}

func (s testServer) do(t *testing.T, method string, path string, body string, token string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s testServer) issue(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	artifact, err := s.tokens.Issue(subject, roles, 30)
	require.NoError(t, err)
	return artifact.Token
}

func TestPublicFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"u@test.com","password":"Secr3t!"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var artifact struct {
		Token            string `json:"token"`
		Type             string `json:"type"`
		ExpiresInSeconds int    `json:"expiresInSeconds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifact))
	require.Equal(t, "Bearer", artifact.Type)
	require.Equal(t, 1800, artifact.ExpiresInSeconds)

	rec = s.do(t, http.MethodGet, "/api/v1/auth/me", "", artifact.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"subject":"u@test.com"`)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/upsert", `{"email":"new@test.com","role":"editor"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutes(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{name: "me anonymous", path: "/api/v1/auth/me", status: http.StatusUnauthorized},
		{name: "me with garbage token", path: "/api/v1/auth/me", token: "not.a.token", status: http.StatusUnauthorized},
		{name: "audit as user", path: "/api/v1/audit", token: s.issue(t, "u@test.com", "user"), status: http.StatusForbidden},
		{name: "audit as admin", path: "/api/v1/audit", token: s.issue(t, "root@test.com", "admin"), status: http.StatusOK},
		{name: "health", path: "/health", status: http.StatusOK},
		{name: "ready", path: "/ready", status: http.StatusOK},
		{name: "metrics", path: "/metrics", status: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := s.do(t, http.MethodGet, tt.path, "", tt.token)
			require.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestFailedTokenOnPublicRouteIsAnonymous(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"a@test.com","password":"pw"}`, "tampered.token.value")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpsertRequiredRole(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "provisioner")
	body := `{"email":"svc@test.com","role":"admin"}`

	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/auth/upsert", body, "").Code)
	require.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/v1/auth/upsert", body, s.issue(t, "u@test.com", "user")).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/auth/upsert", body, s.issue(t, "ops@test.com", "provisioner")).Code)
}

func TestMetricsExposeOperations(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")

	s.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"ghost@test.com","password":"pw"}`, "")
	s.do(t, http.MethodGet, "/api/v1/auth/me", "", s.issue(t, "u@test.com", "user"))

	rec := s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	require.Contains(t, out, `identity_operations_total{operation="login",outcome="unauthorized"} 1`)
	require.Contains(t, out, `token_verifications_total{outcome="valid"} 1`)
	require.Contains(t, out, `route="/api/v1/auth/login"`)
}
