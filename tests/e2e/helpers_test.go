//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// getEnv returns an environment variable or a fallback value.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// waitForService polls a URL until it's healthy or timeout is reached.
func waitForService(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("service not ready after %v", timeout)
}

// tokenView mirrors the list entries returned by the service.
type tokenView struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Type      int             `json:"type"`
	Scope     map[string]bool `json:"scope"`
	CanDelete bool            `json:"canDelete"`
	Current   bool            `json:"current"`
}

// createdToken mirrors the create response.
type createdToken struct {
	Token       string    `json:"token"`
	LoginName   string    `json:"loginName"`
	DeviceToken tokenView `json:"deviceToken"`
}

// login returns a client whose cookie jar holds a fresh session.
// The session is logged out when the test completes.
func login(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	resp := do(t, client, "POST", "/login", "", map[string]string{
		"user":     userName,
		"password": userPassword,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "login should succeed")

	t.Cleanup(func() {
		resp := do(t, client, "POST", "/logout", "", nil)
		resp.Body.Close()
	})
	return client
}

// do sends a JSON request to the service. When appPassword is set the request
// authenticates with Basic auth instead of a session cookie.
func do(t *testing.T, client *http.Client, method, path, appPassword string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serviceURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if appPassword != "" {
		req.SetBasicAuth(userName, appPassword)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

// listTokens returns the tokens visible to the session held by client.
func listTokens(t *testing.T, client *http.Client) []tokenView {
	t.Helper()

	resp := do(t, client, "GET", "/settings/personal/authtokens", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokens []tokenView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	return tokens
}

// createAppPassword creates an app password and registers its deletion.
func createAppPassword(t *testing.T, client *http.Client, name string) createdToken {
	t.Helper()

	resp := do(t, client, "POST", "/settings/personal/authtokens", "", map[string]string{"name": name})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created createdToken
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	t.Cleanup(func() {
		resp := do(t, client, "DELETE", fmt.Sprintf("/settings/personal/authtokens/%d", created.DeviceToken.ID), "", nil)
		resp.Body.Close()
	})
	return created
}
