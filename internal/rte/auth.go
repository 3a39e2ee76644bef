// Package rte holds the OAuth client for the RTE (French grid operator) data
// portal. Tokens obtained here authorize the EcoWatt API used by the ecowatt
// source.
package rte

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultAuthEndpoint is the RTE portal token endpoint.
const DefaultAuthEndpoint = "https://digital.iservices.rte-france.com/token/oauth/"

// Token is the response of the client-credentials exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AuthClient struct {
	endpoint string
	httpc    *http.Client
}

// NewAuthClient returns a client for the given token endpoint; an empty
// endpoint selects the RTE portal.
func NewAuthClient(endpoint string) *AuthClient {
	if endpoint == "" {
		endpoint = DefaultAuthEndpoint
	}
	return &AuthClient{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchToken exchanges the portal client credentials for an access token.
func (c *AuthClient) FetchToken(ctx context.Context, clientID, clientSecret string) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var tok Token
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response has empty access_token")
	}
	return &tok, nil
}
