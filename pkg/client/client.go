// Package client talks to a formwizard server over HTTP. A Client can stand
// in for the in-process services: it satisfies editor.Backend as well as
// the wizard's FieldUpdater and Authenticator.
package client

import (
	"bytes"
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

	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

var (
	// ErrNotFound mirrors a 404 from the server.
	ErrNotFound = errors.New("client: not found")
	// ErrRejected mirrors a 400 from the server.
	ErrRejected = errors.New("client: request rejected")
)

// APIError is a non-2xx response.
type APIError struct {
	Status   int
	Message  string
	Property string
}

func (e *APIError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("client: %d %s: %s", e.Status, e.Property, e.Message)
	}
	return fmt.Sprintf("client: %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses to sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrRejected
	default:
		return nil
	}
}

// Client is an HTTP client for the formwizard API.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", baseURL)
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := *c.base
	target.Path = c.base.Path + path
	target.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("client: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error    string `json:"error"`
			Property string `json:"property"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error, Property: payload.Property}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

// FetchAdminLayout returns the full layout.
func (c *Client) FetchAdminLayout(ctx context.Context) (*layout.Form, error) {
	var form layout.Form
	if err := c.do(ctx, http.MethodGet, "/api/layout/admin", nil, nil, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

// FetchFrontendLayout returns the layout without hidden sections.
func (c *Client) FetchFrontendLayout(ctx context.Context) (*layout.Form, error) {
	var form layout.Form
	if err := c.do(ctx, http.MethodGet, "/api/layout/frontend", nil, nil, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

// SaveLayout sends an edited layout and returns the canonical one.
func (c *Client) SaveLayout(ctx context.Context, form *layout.Form) (*layout.Form, error) {
	var saved layout.Form
	if err := c.do(ctx, http.MethodPut, "/api/layout", nil, form, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateFieldValue writes one user property.
func (c *Client) UpdateFieldValue(ctx context.Context, update account.FieldUpdate) (account.User, error) {
	var user account.User
	err := c.do(ctx, http.MethodPost, "/api/users/onboarding", nil, update, &user)
	return user, err
}

// Authenticate runs the verify-or-create exchange.
func (c *Client) Authenticate(ctx context.Context, email, password string) (account.AuthResult, error) {
	var res account.AuthResult
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/api/auth", nil, body, &res)
	return res, err
}

// ListUsers returns every user.
func (c *Client) ListUsers(ctx context.Context) ([]account.User, error) {
	var users []account.User
	err := c.do(ctx, http.MethodGet, "/api/users", nil, nil, &users)
	return users, err
}

// UserExists reports whether email is registered.
func (c *Client) UserExists(ctx context.Context, email string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users/exists", url.Values{"email": {email}}, nil, &out)
	return out.Exists, err
}

// UserByEmail returns the user registered under email.
func (c *Client) UserByEmail(ctx context.Context, email string) (account.User, error) {
	var user account.User
	err := c.do(ctx, http.MethodGet, "/api/users/by-email", url.Values{"email": {email}}, nil, &user)
	return user, err
}
