//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go-identity-service/internal/app"
	"go-identity-service/internal/config"
)

// newPostgresServer wires the full application, schema included, against INTEGRATION_DATABASE_URL.
func newPostgresServer(t *testing.T) *httptest.Server {
	t.Helper()

	databaseURL := os.Getenv("INTEGRATION_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("INTEGRATION_DATABASE_URL is not set")
	}

	application, err := app.New(&config.Config{
		ServerPort:           "0",
		RequestTimeout:       10 * time.Second,
		JWTSecret:            "integration-secret-with-at-least-32-bytes",
		JWTIssuer:            "identity-service",
		TokenValidityMinutes: 30,
		DatabaseURL:          databaseURL,
		DBMaxConns:           8,
		DBMinConns:           1,
		BcryptCost:           4,
		DefaultRole:          "user",
		SelfRegisterRoles:    []string{"user"},
		CORSOrigins:          []string{"*"},
	})
	require.NoError(t, err)
	t.Cleanup(application.Close)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)
	return server
}

func uniqueEmail() string {
	return "it-" + uuid.NewString() + "@example.com"
}

type tokenResponse struct {
	Token            string `json:"token"`
	Type             string `json:"type"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

func postJSON(t *testing.T, url string, payload any, token string) (*http.Response, []byte) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return doRequest(t, req)
}

func getWithToken(t *testing.T, url string, token string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return doRequest(t, req)
}

// doRequest is safe to call from worker goroutines; it never calls t.FailNow.
func doRequest(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Errorf("request %s %s: %v", req.Method, req.URL, err)
		return &http.Response{StatusCode: 0}, nil
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Errorf("read body: %v", err)
	}
	return resp, buf.Bytes()
}
