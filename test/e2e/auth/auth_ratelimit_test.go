package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoginRateLimit verifies the strict rate limit on the login endpoint
// using the production default limits.
func TestLoginRateLimit(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := newAPIClient(baseURL)

	// The strict profile allows 5 requests per minute. Hammer the endpoint
	// until we see a 429; it must arrive within the burst budget + 1.
	var limited bool
	for i := 0; i < 10; i++ {
		status, _ := client.do(t, http.MethodPost, "/v1/auth/login",
			map[string]string{"username": "nobody", "password": "whatever"}, nil)

		if status == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusUnauthorized, status)
	}

	require.True(t, limited, "login endpoint should rate limit within 10 requests")

	t.Logf("Login endpoint correctly rate limited")
}

// TestRateLimitHeaders verifies 429 responses carry retry metadata.
func TestRateLimitHeaders(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	httpClient := &http.Client{}

	var resp *http.Response
	for i := 0; i < 10; i++ {
		req, err := http.NewRequestWithContext(t.Context(),
			http.MethodPost, baseURL+"/v1/auth/login", nil)
		require.NoError(t, err)

		r, err := httpClient.Do(req)
		require.NoError(t, err)

		if r.StatusCode == http.StatusTooManyRequests {
			resp = r
			break
		}
		r.Body.Close()
	}

	require.NotNil(t, resp, "should hit the rate limit")
	defer resp.Body.Close()

	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))
}
