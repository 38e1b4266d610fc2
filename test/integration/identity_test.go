//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterLoginAgainstPostgres(t *testing.T) {
	server := newPostgresServer(t)
	email := uniqueEmail()

	resp, body := postJSON(t, server.URL+"/api/v1/auth/register", map[string]string{"email": email, "password": "Secr3t!"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var artifact tokenResponse
	require.NoError(t, json.Unmarshal(body, &artifact))
	require.Equal(t, "Bearer", artifact.Type)
	require.Equal(t, 1800, artifact.ExpiresInSeconds)

	resp, _ = postJSON(t, server.URL+"/api/v1/auth/register", map[string]string{"email": email, "password": "other"}, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = postJSON(t, server.URL+"/api/v1/auth/login", map[string]string{"email": email, "password": "Secr3t!"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, server.URL+"/api/v1/auth/login", map[string]string{"email": email, "password": "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConcurrentRegisterYieldsOneAccount(t *testing.T) {
	server := newPostgresServer(t)
	email := uniqueEmail()

	const workers = 8
	statuses := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := postJSON(t, server.URL+"/api/v1/auth/register", map[string]string{"email": email, "password": "pw"}, "")
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	counts := map[int]int{}
	for status := range statuses {
		counts[status]++
	}
	require.Equal(t, 1, counts[http.StatusOK])
	require.Equal(t, workers-1, counts[http.StatusConflict])
}

func TestConcurrentUpsertKeepsRoleUnique(t *testing.T) {
	server := newPostgresServer(t)
	email := uniqueEmail()

	const workers = 6
	statuses := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := postJSON(t, server.URL+"/api/v1/auth/upsert", map[string]string{"email": email, "role": "editor"}, "")
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		require.Equal(t, http.StatusOK, status)
	}

	resp, body := postJSON(t, server.URL+"/api/v1/auth/upsert", map[string]string{"email": email, "role": "EDITOR"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var artifact tokenResponse
	require.NoError(t, json.Unmarshal(body, &artifact))

	resp, body = getWithToken(t, server.URL+"/api/v1/auth/me", artifact.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me struct {
		Data struct {
			Roles []string `json:"roles"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &me))
	require.Equal(t, []string{"editor"}, me.Data.Roles)
}
