// Package token fetches the session credential from the token service. One
// request per session attempt, consumed before anything else begins.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Credential is the token service response: a signed join token and the
// room allocated for this session.
type Credential struct {
	Token string `json:"token"`
	Room  string `json:"room"`
}

// Client talks to the token service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch requests a credential for the given participant name.
func (c *Client) Fetch(ctx context.Context, name string) (Credential, error) {
	u := fmt.Sprintf("%s/getToken?name=%s", c.baseURL, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Credential{}, fmt.Errorf("build token request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("token service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credential{}, fmt.Errorf("token service returned %s", resp.Status)
	}

	var cred Credential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return Credential{}, fmt.Errorf("decode token response: %w", err)
	}
	if cred.Token == "" || cred.Room == "" {
		return Credential{}, fmt.Errorf("token service returned incomplete credential")
	}
	return cred, nil
}
