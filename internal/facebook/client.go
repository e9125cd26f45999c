// Package facebook implements a minimal Graph API client covering the three
// capabilities the dashboard needs: the OAuth login handshake, generic
// authenticated reads, and the page insights report.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mojo-insights/internal/domain"
	"mojo-insights/internal/observability"
)

const (
	defaultGraphURL  = "https://graph.facebook.com/v19.0"
	defaultDialogURL = "https://www.facebook.com/v19.0/dialog/oauth"

	// Read-only page scopes requested at login.
	loginScope = "pages_show_list,pages_read_engagement,pages_read_user_content"
)

// GraphError is the error object the Graph API embeds in failed responses.
type GraphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api error (code %d, type %s): %s", e.Code, e.Type, e.Message)
}

// Config holds the app credentials and endpoint URLs. The URLs are
// overridable so tests can point the client at an httptest server.
type Config struct {
	AppID       string
	AppSecret   string
	RedirectURL string
	GraphURL    string
	DialogURL   string
}

// Client handles requests to the Facebook Graph API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Graph API client.
func New(config Config) *Client {
	if config.GraphURL == "" {
		config.GraphURL = defaultGraphURL
	}
	if config.DialogURL == "" {
		config.DialogURL = defaultDialogURL
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether app credentials are present. An unconfigured
// client cannot start a login.
func (c *Client) Configured() bool {
	return c.config.AppID != "" && c.config.AppSecret != ""
}

// LoginURL builds the OAuth dialog URL with the three page scopes.
func (c *Client) LoginURL(state string) string {
	params := url.Values{
		"client_id":     {c.config.AppID},
		"redirect_uri":  {c.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {loginScope},
		"state":         {state},
	}
	return c.config.DialogURL + "?" + params.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode exchanges an authorization code for a user access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	params := url.Values{
		"client_id":     {c.config.AppID},
		"client_secret": {c.config.AppSecret},
		"redirect_uri":  {c.config.RedirectURL},
		"code":          {code},
	}

	var resp tokenResponse
	if err := c.get(ctx, "oauth_token", "/oauth/access_token", params, &resp); err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in exchange response")
	}
	return resp.AccessToken, nil
}

type profileResponse struct {
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// FetchProfile reads /me with name and picture fields.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	params := url.Values{
		"fields":       {"name,picture"},
		"access_token": {accessToken},
	}

	var resp profileResponse
	if err := c.get(ctx, "me", "/me", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return &domain.Profile{
		Name:       resp.Name,
		PictureURL: resp.Picture.Data.URL,
	}, nil
}

type accountsResponse struct {
	Data []domain.Page `json:"data"`
}

// FetchPages reads /me/accounts. The returned order is the platform's;
// callers must not re-sort.
func (c *Client) FetchPages(ctx context.Context, accessToken string) ([]domain.Page, error) {
	params := url.Values{
		"access_token": {accessToken},
	}

	var resp accountsResponse
	if err := c.get(ctx, "accounts", "/me/accounts", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch pages: %w", err)
	}
	return resp.Data, nil
}

type insightsResponse struct {
	Data []domain.InsightMetric `json:"data"`
}

// FetchInsights requests the four tracked metrics for a page over the given
// range. Empty since/until bounds are omitted; non-empty bounds are passed
// through uninterpreted. The page-scoped token authorizes the call.
func (c *Client) FetchInsights(ctx context.Context, pageID, pageToken, since, until string) ([]domain.InsightMetric, error) {
	params := url.Values{
		"metric":       {strings.Join(domain.TrackedMetrics, ",")},
		"period":       {"total_over_range"},
		"access_token": {pageToken},
	}
	if since != "" {
		params.Set("since", since)
	}
	if until != "" {
		params.Set("until", until)
	}

	var resp insightsResponse
	if err := c.get(ctx, "insights", "/"+pageID+"/insights", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch insights: %w", err)
	}
	return resp.Data, nil
}

// get performs a generic authenticated read of a Graph API path and decodes
// the JSON response into out. A response carrying the Graph error envelope
// fails regardless of HTTP status. endpoint is the low-cardinality metric
// label for the call.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	reqURL := c.config.GraphURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	defer func() {
		observability.GraphRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.GraphRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.GraphRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Error *GraphError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		observability.GraphRequestsTotal.WithLabelValues(endpoint, "graph_error").Inc()
		return envelope.Error
	}

	if resp.StatusCode != http.StatusOK {
		observability.GraphRequestsTotal.WithLabelValues(endpoint, "http_error").Inc()
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	observability.GraphRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}
