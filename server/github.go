package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Exchanger wraps GitHub's OAuth code exchange. The two varieties are
// unrelated OAuth apps, so each gets its own oauth2.Config.
type Exchanger struct {
	configs map[Variety]*oauth2.Config
	logger  *slog.Logger
}

// NewExchanger builds the per-variety OAuth configurations.
func NewExchanger(cfg Config, logger *slog.Logger) *Exchanger {
	endpoint := oauth2.Endpoint{
		AuthURL:  cfg.GitHub.AuthURL,
		TokenURL: cfg.GitHub.TokenURL,
	}

	configs := make(map[Variety]*oauth2.Config, 2)
	for _, v := range []Variety{VarietyReceived, VarietyOrganization} {
		pair := cfg.OAuthClient(v)
		configs[v] = &oauth2.Config{
			ClientID:     pair.ClientID,
			ClientSecret: pair.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  strings.TrimSuffix(cfg.Server.PublicURL, "/") + "/" + v.String() + "/return/",
			Scopes:       []string{v.Scope()},
		}
	}

	return &Exchanger{configs: configs, logger: logger}
}

// AuthCodeURL constructs the authorization request for the variety.
func (e *Exchanger) AuthCodeURL(v Variety, state string) string {
	return e.configs[v].AuthCodeURL(state)
}

// Exchange redeems an authorization code for an access token. A rejection is
// terminal for the delegation attempt; no retries.
func (e *Exchanger) Exchange(ctx context.Context, v Variety, code string) (string, error) {
	tok, err := e.configs[v].Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", fmt.Errorf("%w: %s", ErrProviderAuth, retrieveErr.ErrorCode)
		}
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrProviderAuth)
	}
	return tok.AccessToken, nil
}

// APIClient performs the GitHub REST calls an issued token authorizes: the
// identity, its organizations, and one page of events.
type APIClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	metrics *Metrics
}

// NewAPIClient constructs the REST client.
func NewAPIClient(cfg Config, logger *slog.Logger, metrics *Metrics) *APIClient {
	return &APIClient{
		baseURL: strings.TrimSuffix(cfg.GitHub.APIBaseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		metrics: metrics,
	}
}

// User fetches the identity behind the token.
func (c *APIClient) User(ctx context.Context, token string) (Identity, error) {
	var id Identity
	if err := c.get(ctx, token, "/user", &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Organizations lists the organizations the authenticated user belongs to.
// This is the membership set a submitted organization is validated against.
func (c *APIClient) Organizations(ctx context.Context, token string) ([]Organization, error) {
	var orgs []Organization
	if err := c.get(ctx, token, "/user/orgs", &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// Organization fetches full details for one organization. The membership
// listing only carries a subset of the fields the edition header needs.
func (c *APIClient) Organization(ctx context.Context, token, login string) (Organization, error) {
	var org Organization
	if err := c.get(ctx, token, "/orgs/"+url.PathEscape(login), &org); err != nil {
		return Organization{}, err
	}
	return org, nil
}

// ReceivedEvents fetches one page of events the user has received, newest first.
func (c *APIClient) ReceivedEvents(ctx context.Context, token, login string) ([]ActivityEvent, error) {
	var events []ActivityEvent
	if err := c.get(ctx, token, "/users/"+url.PathEscape(login)+"/received_events", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// OrganizationEvents fetches one page of an organization's events from the
// user's point of view, newest first.
func (c *APIClient) OrganizationEvents(ctx context.Context, token, login, org string) ([]ActivityEvent, error) {
	var events []ActivityEvent
	path := "/users/" + url.PathEscape(login) + "/events/orgs/" + url.PathEscape(org)
	if err := c.get(ctx, token, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *APIClient) get(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(path, "transport_error")
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.observe(path, "auth_error")
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s returned %d", ErrUpstreamAuth, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.observe(path, "upstream_error")
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("github %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe(path, "decode_error")
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	c.observe(path, "ok")
	return nil
}

func (c *APIClient) observe(path, outcome string) {
	if c.metrics != nil {
		c.metrics.UpstreamRequests.WithLabelValues(metricEndpoint(path), outcome).Inc()
	}
}

// metricEndpoint collapses per-user paths into a bounded label set.
func metricEndpoint(path string) string {
	switch {
	case path == "/user":
		return "user"
	case path == "/user/orgs":
		return "user_orgs"
	case strings.HasPrefix(path, "/orgs/"):
		return "org"
	case strings.Contains(path, "/events/orgs/"):
		return "org_events"
	case strings.HasSuffix(path, "/received_events"):
		return "received_events"
	default:
		return "other"
	}
}
