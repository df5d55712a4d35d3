// Package identity talks to the external identity provider. The provider
// owns passwords, sessions and MFA; this client only resolves a bearer
// token to the authenticated email, which the auth middleware then maps
// to a staff role.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rifa-web-app/internal/apperrors"
)

// Verifier resolves a session token to the authenticated user's email.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Client is a Verifier backed by a Supabase-style auth endpoint
// (GET {base}/auth/v1/user).
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		baseURL: baseURL,
		anonKey: anonKey,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Verify(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", &apperrors.UpstreamFailure{Service: "identity", Err: err}
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &apperrors.UpstreamFailure{Service: "identity", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", apperrors.ErrNotAuthorized
	case resp.StatusCode != http.StatusOK:
		return "", &apperrors.UpstreamFailure{
			Service: "identity",
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var user struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", &apperrors.UpstreamFailure{Service: "identity", Err: err}
	}
	if user.Email == "" {
		return "", apperrors.ErrNotAuthorized
	}
	return user.Email, nil
}
