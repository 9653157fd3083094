package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-bookstore-client/internal/metrics"
	"github.com/jrsteele09/go-bookstore-client/server"
	"github.com/jrsteele09/go-bookstore-client/sessions"
)

func newTestServer(t *testing.T) (*httptest.Server, *sessions.Store, *metrics.Collectors) {
	t.Helper()
	store := sessions.NewStore()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := httptest.NewServer(server.New("DEV", store, reg, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, store, m
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + server.RouteHealth)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestSessionStatusHidesTokens(t *testing.T) {
	srv, store, _ := newTestServer(t)
	store.Login(sessions.Session{AccessToken: "secret-access", RefreshToken: "secret-refresh", Email: "u@x.com", Exp: "2030-01-01T00:00:00Z"})

	resp, err := http.Get(srv.URL + server.RouteSession)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.NotContains(t, string(body), "secret-")

	var status server.SessionStatus
	require.NoError(t, json.Unmarshal(body, &status))
	require.True(t, status.Authenticated)
	require.Equal(t, "u@x.com", status.Email)
	require.True(t, status.Protected.Allowed)
	require.Equal(t, "/books", status.Public.RedirectTarget)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, m := newTestServer(t)
	m.Refresh("success")

	resp, err := http.Get(srv.URL + server.RouteMetrics)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `bookstore_client_refresh_total{result="success"} 1`)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+server.RouteHealth, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
