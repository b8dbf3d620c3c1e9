package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/course-portal-api/pkg/config"
)

// Client talks to the identity provider's auth endpoints.
type Client struct {
	http     *resty.Client
	baseURL  string
	provider string
}

// NewClient builds a Client from validated backend configuration.
func NewClient(cfg config.BackendConfig) *Client {
	base := strings.TrimRight(cfg.URL, "/")
	httpClient := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.PublicKey).
		SetHeader("Accept", "application/json")
	provider := cfg.OAuthProvider
	if provider == "" {
		provider = "google"
	}
	return &Client{http: httpClient, baseURL: base, provider: provider}
}

// AuthorizeURL returns the OAuth entry point; redirectTo is omitted when empty.
func (c *Client) AuthorizeURL(redirectTo string) string {
	q := url.Values{}
	q.Set("provider", c.provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.baseURL + "/auth/v1/authorize?" + q.Encode()
}

// SignOut terminates the session behind accessToken. A token the provider no
// longer recognises counts as already signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Post("/auth/v1/logout")
	if err != nil {
		return fmt.Errorf("identity logout: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusNoContent, http.StatusUnauthorized, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("identity logout: unexpected status %d", resp.StatusCode())
	}
}
