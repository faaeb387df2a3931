// Package amocrm is the HTTP client for the amoCRM v4 API: OAuth2 token
// exchange and refresh plus the contact/lead/task/customer/catalog operations
// the integration workflow consumes.
package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"crmlink_backend/platform/logger"
)

// Token is the OAuth token state used to authenticate API calls.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	BaseDomain   string
}

// Expired reports whether the access token needs a refresh.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// TokenSaver persists a refreshed token. Called by the session whenever the
// CRM hands out a new token pair.
type TokenSaver func(ctx context.Context, token Token) error

// Client holds the OAuth application credentials. It is safe for concurrent
// use; per-request token state lives on the Session.
type Client struct {
	httpClient  *http.Client
	clientID    string
	secret      string
	redirectURI string
	baseURL     string // overrides https://{domain} when set (tests)
	log         *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL pins all requests to a fixed base URL instead of the token's
// account domain.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// New creates a CRM API client for the given OAuth application.
func New(clientID, secret, redirectURI string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		clientID:    clientID,
		secret:      secret,
		redirectURI: redirectURI,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session binds the client to an access token. One session corresponds to one
// inbound request; refreshed tokens are pushed through the saver.
type Session struct {
	client *Client

	mu      sync.Mutex
	token   Token
	onSaved TokenSaver
}

// Session creates an authenticated session. The saver may be nil when token
// persistence is not wanted (e.g. tests).
func (c *Client) Session(token Token, onSaved TokenSaver) (*Session, error) {
	if token.AccessToken == "" || token.BaseDomain == "" {
		return nil, ErrMissingToken
	}
	return &Session{client: c, token: token, onSaved: onSaved}, nil
}

func (c *Client) endpoint(domain, path string) string {
	if c.baseURL != "" {
		return c.baseURL + path
	}
	return "https://" + domain + path
}

// do performs one authenticated API call, refreshing the token when it is
// expired or rejected. Writes body as JSON when non-nil and decodes the
// response into out when non-nil.
func (s *Session) do(ctx context.Context, method, path string, body, out interface{}) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token.Expired(time.Now()) {
		refreshed, err := s.refresh(ctx, token)
		if err != nil {
			return err
		}
		token = refreshed
	}

	status, err := s.client.roundTrip(ctx, method, s.client.endpoint(token.BaseDomain, path), token.AccessToken, body, out)
	if status == http.StatusUnauthorized {
		refreshed, refreshErr := s.refresh(ctx, token)
		if refreshErr != nil {
			return refreshErr
		}
		_, err = s.client.roundTrip(ctx, method, s.client.endpoint(refreshed.BaseDomain, path), refreshed.AccessToken, body, out)
	}
	return err
}

func (s *Session) refresh(ctx context.Context, stale Token) (Token, error) {
	refreshed, err := s.client.refreshToken(ctx, stale)
	if err != nil {
		return Token{}, err
	}

	s.mu.Lock()
	s.token = refreshed
	saver := s.onSaved
	s.mu.Unlock()

	if saver != nil {
		if err := saver(ctx, refreshed); err != nil {
			return Token{}, fmt.Errorf("save refreshed token: %w", err)
		}
	}
	return refreshed, nil
}

func (c *Client) roundTrip(ctx context.Context, method, reqURL, accessToken string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.CRMError(method+" "+reqURL, err)
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	c.log.CRMCall(method+" "+req.URL.Path, resp.StatusCode, float64(time.Since(start).Milliseconds()))

	if resp.StatusCode >= 400 {
		return resp.StatusCode, decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &parsed) == nil {
		apiErr.Title = parsed.Title
		apiErr.Detail = parsed.Detail
	}
	return apiErr
}
