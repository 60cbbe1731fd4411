package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint works on a fresh service.
func TestLivezEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	var health healthResponse
	status, _ := client.do(t, http.MethodGet, "/livez", nil, &health)

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", health.Status)
	require.NotEmpty(t, health.Version)

	t.Logf("Livez endpoint is healthy")
}

// TestReadyzEndpoint verifies the readiness check endpoint reports the database.
func TestReadyzEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	var health healthResponse
	status, _ := client.do(t, http.MethodGet, "/readyz", nil, &health)

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", health.Status)

	t.Logf("Readyz endpoint is healthy")
}

// TestSwaggerEndpoint verifies the API docs are served.
func TestSwaggerEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	status, raw := client.do(t, http.MethodGet, "/swagger/doc.json", nil, nil)

	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(raw), "RMS Authentication Service API")
}
